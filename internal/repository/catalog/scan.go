package catalog

import (
	"database/sql"

	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
)

// optFloat scans a nullable column into an optional field.
type optFloat struct{ dst **float64 }

func (o optFloat) Scan(src any) error {
	var n sql.NullFloat64
	if err := n.Scan(src); err != nil {
		return err
	}
	if !n.Valid {
		*o.dst = nil
		return nil
	}
	f := n.Float64
	*o.dst = &f
	return nil
}

// recordDest returns scan targets in the order of columns.
func recordDest(rec *domcat.Record) []any {
	return []any{
		&rec.ID, &rec.RA, &rec.Dec,
		optFloat{&rec.Parallax},
		optFloat{&rec.ProperMotionRA},
		optFloat{&rec.ProperMotionDec},
		optFloat{&rec.MagnitudeG},
		optFloat{&rec.MagnitudeBP},
		optFloat{&rec.MagnitudeRP},
		optFloat{&rec.QualityFlag},
		&rec.SourceCatalog,
	}
}

func scanRecord(row *sql.Row) (domcat.Record, error) {
	var rec domcat.Record
	if err := row.Scan(recordDest(&rec)...); err != nil {
		return domcat.Record{}, err
	}
	return rec, nil
}
