package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/shadowcast/internal/config"
)

var describeLights lightFlags

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the CSS drop-shadow for a light",
	Long:  `Prints the single drop-shadow filter that approximates the layered shadow of a light.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var flags config.Flags
		describeLights.apply(cmd, &flags)
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}
		fmt.Println(cfg.Light.DropShadow())
		return nil
	},
}

func init() {
	describeLights.register(describeCmd, false)
	rootCmd.AddCommand(describeCmd)
}
