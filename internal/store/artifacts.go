package store

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/shadowcast/internal/raster"
)

// compositeArtifacts are written for every saved render.
var compositeArtifacts = []struct {
	name   string
	format raster.Format
}{
	{ArtifactCompositePNG, raster.FormatPNG},
	{ArtifactCompositeWebP, raster.FormatWebP},
}

// SaveRender writes the composite artifacts for rec and then the record
// itself, so a listed record always has its images on disk.
func SaveRender(st Store, rec *Record, composite *raster.Buffer) error {
	for _, a := range compositeArtifacts {
		path, err := st.ArtifactPath(rec.ID, a.name)
		if err != nil {
			return err
		}
		if err := raster.SaveAs(path, composite, a.format); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.name, err)
		}
		rec.Artifacts = append(rec.Artifacts, a.name)
	}

	if err := st.SaveRecord(rec); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	slog.Debug("Render saved", "id", rec.ID, "artifacts", rec.Artifacts)
	return nil
}
