package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch-backend/internal/domain"

	"github.com/lib/pq"
)

// ErrNoRows is returned by updates that matched nothing.
var ErrNoRows = errors.New("no matching row")

// courierRoles are the users.role values that make a user a courier.
var courierRoles = []string{"rider", "courier"}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(ctx context.Context, dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	r := &PostgresRepo{db: db}
	if err := r.init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return r, nil
}

func (r *PostgresRepo) Close() error { return r.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL DEFAULT '',
		payment_id TEXT NOT NULL DEFAULT '',
		order_status TEXT NOT NULL,
		pickup_date TEXT NOT NULL DEFAULT '',
		pickup_time_slot TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		delivery_time_slot TEXT NOT NULL DEFAULT '',
		delivery_address TEXT NOT NULL DEFAULT '',
		address_details JSONB,
		store_id TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		coupon_code TEXT NOT NULL DEFAULT '',
		discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		cancel_reason TEXT NOT NULL DEFAULT '',
		cancelled_at TIMESTAMPTZ,
		source_system TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assigned_orders (
		id TEXT PRIMARY KEY,
		courier_id TEXT NOT NULL DEFAULT '',
		courier_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		leg TEXT NOT NULL DEFAULT '',
		store_address_id TEXT NOT NULL DEFAULT '',
		total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		delivery_address TEXT NOT NULL DEFAULT '',
		pickup_date TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS store_addresses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		line1 TEXT NOT NULL,
		line2 TEXT NOT NULL DEFAULT '',
		landmark TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		pincode TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		contact_name TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rider_profiles (
		user_id TEXT PRIMARY KEY,
		is_active BOOLEAN,
		is_available BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS admin_notifications (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

func (r *PostgresRepo) init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `id,total_amount,payment_method,payment_status,payment_id,order_status,
	pickup_date,pickup_time_slot,delivery_date,delivery_time_slot,delivery_address,address_details,
	store_id,customer_name,customer_phone,coupon_code,discount_amount,is_cancelled,cancel_reason,
	cancelled_at,source_system,created_at,updated_at`

func (r *PostgresRepo) GetOrder(ctx context.Context, id string) (*domain.Order, bool, error) {
	var (
		o         domain.Order
		details   []byte
		cancelled sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id).Scan(
		&o.ID, &o.TotalAmount, &o.PaymentMethod, &o.PaymentStatus, &o.PaymentID, (*string)(&o.OrderStatus),
		&o.PickupDate, &o.PickupTimeSlot, &o.DeliveryDate, &o.DeliveryTimeSlot, &o.DeliveryAddress, &details,
		&o.StoreID, &o.CustomerName, &o.CustomerPhone, &o.CouponCode, &o.DiscountAmount, &o.IsCancelled, &o.CancelReason,
		&cancelled, &o.SourceSystem, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if o.AddressDetails, err = decodeDetails(details); err != nil {
		return nil, false, fmt.Errorf("order %s: %w", id, err)
	}
	if cancelled.Valid {
		t := cancelled.Time
		o.CancelledAt = &t
	}
	return &o, true, nil
}

// decodeDetails reads the address_details column; NULL decodes to nil.
func decodeDetails(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode address_details: %w", err)
	}
	return m, nil
}

func (r *PostgresRepo) PutOrder(ctx context.Context, o *domain.Order) error {
	// JSONB goes over the wire as text; a []byte would be sent as bytea.
	var details any
	if o.AddressDetails != nil {
		b, err := json.Marshal(o.AddressDetails)
		if err != nil {
			return fmt.Errorf("encode address_details: %w", err)
		}
		details = string(b)
	}
	var cancelled sql.NullTime
	if o.CancelledAt != nil {
		cancelled = sql.NullTime{Time: *o.CancelledAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (id) DO UPDATE SET total_amount=$2,payment_method=$3,payment_status=$4,payment_id=$5,
			order_status=$6,pickup_date=$7,pickup_time_slot=$8,delivery_date=$9,delivery_time_slot=$10,
			delivery_address=$11,address_details=$12,store_id=$13,customer_name=$14,customer_phone=$15,
			coupon_code=$16,discount_amount=$17,is_cancelled=$18,cancel_reason=$19,cancelled_at=$20,
			source_system=$21,updated_at=$23`,
		o.ID, o.TotalAmount, o.PaymentMethod, o.PaymentStatus, o.PaymentID, string(o.OrderStatus),
		o.PickupDate, o.PickupTimeSlot, o.DeliveryDate, o.DeliveryTimeSlot, o.DeliveryAddress, details,
		o.StoreID, o.CustomerName, o.CustomerPhone, o.CouponCode, o.DiscountAmount, o.IsCancelled, o.CancelReason,
		cancelled, o.SourceSystem, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresRepo) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET order_status=$2, updated_at=$3 WHERE id=$1`, id, string(status), at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoRows
	}
	return nil
}

const assignmentColumns = `id,courier_id,courier_name,status,leg,store_address_id,total_amount,
	delivery_address,pickup_date,delivery_date,customer_name,customer_phone,created_at,updated_at`

func (r *PostgresRepo) GetAssignment(ctx context.Context, orderID string) (*domain.Assignment, bool, error) {
	var a domain.Assignment
	err := r.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assigned_orders WHERE id=$1`, orderID).Scan(
		&a.OrderID, &a.CourierID, &a.CourierName, (*string)(&a.Status), (*string)(&a.Leg), &a.StoreAddressID, &a.TotalAmount,
		&a.DeliveryAddress, &a.PickupDate, &a.DeliveryDate, &a.CustomerName, &a.CustomerPhone, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

func (r *PostgresRepo) PutAssignment(ctx context.Context, a *domain.Assignment) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO assigned_orders (`+assignmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET courier_id=$2,courier_name=$3,status=$4,leg=$5,store_address_id=$6,
			total_amount=$7,delivery_address=$8,pickup_date=$9,delivery_date=$10,customer_name=$11,
			customer_phone=$12,updated_at=$14`,
		a.OrderID, a.CourierID, a.CourierName, string(a.Status), string(a.Leg), a.StoreAddressID, a.TotalAmount,
		a.DeliveryAddress, a.PickupDate, a.DeliveryDate, a.CustomerName, a.CustomerPhone, a.CreatedAt, a.UpdatedAt)
	return err
}

const storeColumns = `id,name,line1,line2,landmark,city,state,pincode,lat,lng,contact_name,contact_phone,
	is_default,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (domain.StoreAddress, error) {
	var (
		s        domain.StoreAddress
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&s.ID, &s.Name, &s.Line1, &s.Line2, &s.Landmark, &s.City, &s.State, &s.Pincode,
		&lat, &lng, &s.ContactName, &s.ContactPhone, &s.IsDefault, &s.CreatedAt, &s.UpdatedAt)
	if lat.Valid {
		s.Lat = &lat.Float64
	}
	if lng.Valid {
		s.Lng = &lng.Float64
	}
	return s, err
}

func (r *PostgresRepo) queryStore(ctx context.Context, where string, args ...any) (*domain.StoreAddress, bool, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM store_addresses `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

func (r *PostgresRepo) GetStore(ctx context.Context, id string) (*domain.StoreAddress, bool, error) {
	return r.queryStore(ctx, `WHERE id=$1`, id)
}

func (r *PostgresRepo) DefaultStore(ctx context.Context) (*domain.StoreAddress, bool, error) {
	return r.queryStore(ctx, `WHERE is_default ORDER BY created_at DESC LIMIT 1`)
}

func (r *PostgresRepo) EarliestStore(ctx context.Context) (*domain.StoreAddress, bool, error) {
	return r.queryStore(ctx, `ORDER BY created_at ASC LIMIT 1`)
}

func (r *PostgresRepo) ListStores(ctx context.Context) ([]domain.StoreAddress, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+storeColumns+` FROM store_addresses ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.StoreAddress
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) PutStore(ctx context.Context, s *domain.StoreAddress) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO store_addresses (`+storeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET name=$2,line1=$3,line2=$4,landmark=$5,city=$6,state=$7,pincode=$8,
			lat=$9,lng=$10,contact_name=$11,contact_phone=$12,is_default=$13,updated_at=$15`,
		s.ID, s.Name, s.Line1, s.Line2, s.Landmark, s.City, s.State, s.Pincode,
		nullFloat(s.Lat), nullFloat(s.Lng), s.ContactName, s.ContactPhone, s.IsDefault, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresRepo) ClearDefaultStores(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE store_addresses SET is_default=FALSE, updated_at=NOW() WHERE is_default`)
	return err
}

const courierQuery = `SELECT u.id,u.name,u.phone,u.email,p.is_active,p.is_available,u.created_at,u.updated_at
	FROM users u LEFT JOIN rider_profiles p ON p.user_id = u.id
	WHERE u.role = ANY($1)`

func scanCourier(row rowScanner) (domain.Courier, error) {
	var (
		c                 domain.Courier
		active, available sql.NullBool
	)
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &active, &available, &c.CreatedAt, &c.UpdatedAt)
	if active.Valid {
		c.Active = &active.Bool
	}
	if available.Valid {
		c.Available = &available.Bool
	}
	return c, err
}

func (r *PostgresRepo) GetCourier(ctx context.Context, id string) (*domain.Courier, bool, error) {
	c, err := scanCourier(r.db.QueryRowContext(ctx, courierQuery+` AND u.id=$2`, pq.Array(courierRoles), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

func (r *PostgresRepo) ListCouriers(ctx context.Context) ([]domain.Courier, error) {
	rows, err := r.db.QueryContext(ctx, courierQuery+` ORDER BY u.name ASC`, pq.Array(courierRoles))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Courier
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) PutNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO admin_notifications (id,kind,title,body,order_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO NOTHING`,
		n.ID, n.Kind, n.Title, n.Body, n.OrderID, n.CreatedAt)
	return err
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
