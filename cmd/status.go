package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/shadowcast/internal/shadow"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [render-id]",
	Short: "Query server status or specific render",
	Long: `Queries the server for render status information.
If no render-id is provided, lists all renders of the running server.
If render-id is provided, shows detailed status for that render.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// renderStatus is the subset of a job or stored record the CLI prints.
type renderStatus struct {
	ID         string            `json:"id"`
	State      string            `json:"state"`
	Stage      string            `json:"stage"`
	Foreground string            `json:"foreground"`
	Background string            `json:"background"`
	Depth      string            `json:"depth"`
	Config     *renderConfig     `json:"config"`
	Light      *shadow.Light     `json:"light"`
	Placement  *shadow.Placement `json:"placement"`
	DropShadow string            `json:"dropShadow"`
	Elapsed    time.Duration     `json:"elapsed"`
	Error      string            `json:"error"`
}

type renderConfig struct {
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Depth      string `json:"depth"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listRenders(cmd.OutOrStdout(), fmt.Sprintf("%s/api/v1/renders", serverURL))
	}
	id := args[0]
	return getRenderStatus(cmd.OutOrStdout(), fmt.Sprintf("%s/api/v1/renders/%s/status", serverURL, id), id)
}

func fetchJSON(url string, v any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listRenders(w io.Writer, url string) error {
	var renders []renderStatus
	if _, err := fetchJSON(url, &renders); err != nil {
		return err
	}

	if len(renders) == 0 {
		fmt.Fprintln(w, "No renders found")
		return nil
	}

	fmt.Fprintf(w, "Found %d render(s):\n\n", len(renders))
	for _, r := range renders {
		fmt.Fprintf(w, "Render ID: %s\n", r.ID)
		fmt.Fprintf(w, "  State: %s\n", r.State)
		if r.Config != nil {
			fmt.Fprintf(w, "  Foreground: %s\n", r.Config.Foreground)
		}
		if r.DropShadow != "" {
			fmt.Fprintf(w, "  Shadow: %s\n", r.DropShadow)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func getRenderStatus(w io.Writer, url, id string) error {
	var status renderStatus
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("render not found: %s", id)
	}
	if err != nil {
		return err
	}

	// Live jobs carry their inputs in config; stored records at the top level
	fg, bg, depth := status.Foreground, status.Background, status.Depth
	if status.Config != nil {
		fg, bg, depth = status.Config.Foreground, status.Config.Background, status.Config.Depth
	}
	state := status.State
	if state == "" {
		state = "stored"
	}

	fmt.Fprintf(w, "Render: %s\n", status.ID)
	fmt.Fprintf(w, "State: %s\n", state)
	if status.Stage != "" {
		fmt.Fprintf(w, "Stage: %s\n", status.Stage)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Inputs:")
	fmt.Fprintf(w, "  Foreground: %s\n", fg)
	fmt.Fprintf(w, "  Background: %s\n", bg)
	if depth != "" {
		fmt.Fprintf(w, "  Depth: %s\n", depth)
	}
	fmt.Fprintln(w)

	if status.Light != nil {
		fmt.Fprintln(w, "Result:")
		fmt.Fprintf(w, "  Light: angle=%.1f elevation=%.1f intensity=%.2f\n",
			status.Light.Angle, status.Light.Elevation, status.Light.Intensity)
		if status.Placement != nil {
			fmt.Fprintf(w, "  Placement: %dx%d at (%.0f, %.0f)\n",
				status.Placement.Width, status.Placement.Height, status.Placement.X, status.Placement.Y)
		}
		fmt.Fprintf(w, "  Shadow: %s\n", status.DropShadow)
		fmt.Fprintf(w, "  Elapsed: %s\n", status.Elapsed.Round(time.Millisecond))
	}

	if status.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", status.Error)
	}
	return nil
}
