package repository

import (
	"context"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/dto"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardRepository is the read model behind the dashboard and reports.
// It runs hand-written SQL through sqlx on the same connection pool as GORM;
// queries avoid vendor date functions so they run on postgres and sqlite.
type DashboardRepository interface {
	Counts(ctx context.Context, since time.Time) (*dto.DashboardSummary, error)
	RecentMovements(ctx context.Context, limit int) ([]dto.RecentMovement, error)
	TopConsumed(ctx context.Context, since time.Time, limit int) ([]dto.ConsumedMaterial, error)
}

type dashboardRepo struct{ db *sqlx.DB }

// NewDashboardRepository wraps the *sql.DB behind gdb in sqlx, keeping the
// dialect so placeholders are rebound correctly.
func NewDashboardRepository(gdb *gorm.DB) (DashboardRepository, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &dashboardRepo{db: sqlx.NewDb(sqlDB, driverName(gdb.Dialector.Name()))}, nil
}

// driverName maps gorm dialector names onto the names sqlx uses to pick
// a bind style.
func driverName(dialect string) string {
	switch dialect {
	case "postgres":
		return "pgx"
	case "sqlite":
		return "sqlite3"
	default:
		return dialect
	}
}

func (r *dashboardRepo) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, r.db.Rebind(query), args...)
	return n, err
}

func (r *dashboardRepo) Counts(ctx context.Context, since time.Time) (*dto.DashboardSummary, error) {
	s := &dto.DashboardSummary{OrdersByStatus: map[string]int64{}}
	var err error

	if s.TotalMaterials, err = r.count(ctx, `SELECT COUNT(*) FROM materials`); err != nil {
		return nil, err
	}
	if s.CriticalMaterials, err = r.count(ctx, `SELECT COUNT(*) FROM materials WHERE qty_on_hand <= min_stock`); err != nil {
		return nil, err
	}
	if s.TotalProducts, err = r.count(ctx, `SELECT COUNT(*) FROM products`); err != nil {
		return nil, err
	}
	if s.ActiveProducts, err = r.count(ctx, `SELECT COUNT(*) FROM products WHERE active = ?`, true); err != nil {
		return nil, err
	}
	if s.TotalContacts, err = r.count(ctx, `SELECT COUNT(*) FROM contacts WHERE active = ?`, true); err != nil {
		return nil, err
	}
	if s.MovementsToday, err = r.count(ctx, `SELECT COUNT(*) FROM material_movements WHERE created_at >= ?`, since); err != nil {
		return nil, err
	}

	var value decimal.NullDecimal
	err = r.db.GetContext(ctx, &value, `SELECT SUM(qty_on_hand * price_per_unit) FROM materials`)
	if err != nil {
		return nil, err
	}
	s.InventoryValue = value.Decimal.Round(2)

	rows := []struct {
		Status string `db:"status"`
		N      int64  `db:"n"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM orders GROUP BY status`); err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.OrdersByStatus[row.Status] = row.N
	}
	return s, nil
}

func (r *dashboardRepo) RecentMovements(ctx context.Context, limit int) ([]dto.RecentMovement, error) {
	const q = `
SELECT mm.id,
       CASE WHEN mm.material_id IS NOT NULL THEN 'material' ELSE 'product' END AS entity_kind,
       COALESCE(mm.material_id, mm.product_id)                                 AS entity_id,
       COALESCE(m.name, p.name, '')                                            AS entity_name,
       mm.movement_type, mm.quantity, mm.qty_after, mm.reason,
       COALESCE(u.name, '')                                                    AS user_name,
       mm.created_at
FROM material_movements mm
LEFT JOIN materials m ON m.id = mm.material_id
LEFT JOIN products  p ON p.id = mm.product_id
LEFT JOIN users     u ON u.id = mm.user_id
ORDER BY mm.created_at DESC, mm.id DESC
LIMIT ?`
	out := []dto.RecentMovement{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), limit)
	return out, err
}

func (r *dashboardRepo) TopConsumed(ctx context.Context, since time.Time, limit int) ([]dto.ConsumedMaterial, error) {
	const q = `
SELECT m.id AS material_id, m.code, m.name, m.unit, SUM(mm.quantity) AS consumed
FROM material_movements mm
JOIN materials m ON m.id = mm.material_id
WHERE mm.movement_type = 'OUT' AND mm.created_at >= ?
GROUP BY m.id, m.code, m.name, m.unit
ORDER BY consumed DESC, m.name ASC
LIMIT ?`
	out := []dto.ConsumedMaterial{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), since, limit)
	return out, err
}
