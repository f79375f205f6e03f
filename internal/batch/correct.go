package batch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojamap/lojamap/internal/model"
	"github.com/lojamap/lojamap/internal/store"
)

// Correction is a manual fix for one record: edited address fields plus the
// coordinate the operator confirmed. Mode should carry the manual_ prefix
// (or ModeManualMapPick for a direct map placement).
type Correction struct {
	Fields model.Fields
	Point  model.Point
	Mode   model.Mode
	Query  string
}

// ApplyCorrection updates the record in place and persists the confirmed
// coordinate under both the record's pre-edit cache key and the key derived
// from the edited fields. The double write means future batches find the fix
// whether their rows carry the original typo or the corrected address.
func ApplyCorrection(ctx context.Context, s store.Store, rec *model.Record, c Correction) error {
	if !c.Point.Finite() {
		return eris.New("batch: correction coordinate is not finite")
	}

	oldKey := rec.Fields().CacheKey()

	rec.CEP = c.Fields.CEP
	rec.Numero = c.Fields.Numero
	rec.UF = c.Fields.UF
	rec.Cidade = c.Fields.Cidade
	rec.Endereco = c.Fields.Endereco
	rec.Bairro = c.Fields.Bairro
	rec.Point = &model.Point{Lat: c.Point.Lat, Lon: c.Point.Lon}
	rec.Visual = nil
	rec.Mode = c.Mode
	rec.Query = c.Query

	entry := model.GeocodeEntry{
		Lat:   c.Point.Lat,
		Lon:   c.Point.Lon,
		Mode:  c.Mode,
		Query: c.Query,
		TS:    time.Now().UnixMilli(),
	}

	newKey := rec.Fields().CacheKey()
	if err := s.SetGeocode(ctx, oldKey, entry); err != nil {
		return eris.Wrap(err, "batch: persist correction under original key")
	}
	if newKey != oldKey {
		if err := s.SetGeocode(ctx, newKey, entry); err != nil {
			return eris.Wrap(err, "batch: persist correction under edited key")
		}
	}

	zap.L().Info("batch: correction applied",
		zap.Int("row", rec.RowID),
		zap.String("mode", string(c.Mode)),
		zap.Bool("rekeyed", newKey != oldKey),
	)
	return nil
}
