package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/workflow"
)

// ErrNoRows is returned by single-row lookups that match nothing.
var ErrNoRows = errors.New("no rows")

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientForDB wraps an already opened pool.
func NewDatabaseClientForDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

// Profiles

const profileColumns = `id, email, full_name, avatar_url, role, is_banned, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }, p *models.Profile) error {
	return row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Role, &p.IsBanned, &p.CreatedAt, &p.UpdatedAt)
}

// CreateProfile inserts a profile with role user. An existing row is kept.
func (d *DatabaseClient) CreateProfile(ctx context.Context, id uuid.UUID, email, fullName string) (*models.Profile, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (id) DO NOTHING
	`, id, email, fullName, workflow.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return d.GetProfile(ctx, id)
}

func (d *DatabaseClient) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := scanProfile(d.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id = $1
	`, id), &p)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", notFound(err))
	}
	return &p, nil
}

func (d *DatabaseClient) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Orders

const orderSelect = `
	SELECT o.id, o.user_id, o.artist_id, o.title, o.description, o.reference_images,
		o.status, o.rejection_reason, o.price, o.payment_screenshot_url,
		o.payment_rejection_reason, o.final_work_url, o.created_at, o.updated_at,
		c.full_name, c.email, a.full_name
	FROM orders o
	LEFT JOIN profiles c ON c.id = o.user_id
	LEFT JOIN profiles a ON a.id = o.artist_id
`

func scanOrder(row interface{ Scan(...any) error }, o *models.Order) error {
	return row.Scan(
		&o.ID, &o.UserID, &o.ArtistID, &o.Title, &o.Description, &o.ReferenceImages,
		&o.Status, &o.RejectionReason, &o.Price, &o.PaymentScreenshotURL,
		&o.PaymentRejectionReason, &o.FinalWorkURL, &o.CreatedAt, &o.UpdatedAt,
		&o.ClientName, &o.ClientEmail, &o.ArtistName,
	)
}

// CreateOrder inserts a pending order with no artist and no price.
func (d *DatabaseClient) CreateOrder(ctx context.Context, orderID, userID uuid.UUID, title, description string, referenceImages []string) (*models.Order, error) {
	if referenceImages == nil {
		referenceImages = []string{}
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, title, description, reference_images, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, userID, title, description, pq.Array(referenceImages), workflow.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return d.GetOrder(ctx, orderID)
}

func (d *DatabaseClient) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := scanOrder(d.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, orderID), &order); err != nil {
		return nil, fmt.Errorf("failed to get order: %w", notFound(err))
	}
	return &order, nil
}

func (d *DatabaseClient) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID.Valid {
		args = append(args, filter.UserID.UUID)
		where = append(where, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}

	query := orderSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateOrder writes the fields of u that are set, plus the new status, in a
// single statement.
func (d *DatabaseClient) UpdateOrder(ctx context.Context, orderID uuid.UUID, u workflow.Update) error {
	query, args := buildOrderUpdate(orderID, u)

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update order: %w", ErrNoRows)
	}
	return nil
}

func buildOrderUpdate(orderID uuid.UUID, u workflow.Update) (string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	set("status", u.Status)
	if u.ArtistID != nil {
		set("artist_id", *u.ArtistID)
	}
	if u.RejectionReason != nil {
		set("rejection_reason", *u.RejectionReason)
	}
	if u.Price != nil {
		set("price", u.Price.String())
	}
	if u.PaymentScreenshotURL != nil {
		set("payment_screenshot_url", *u.PaymentScreenshotURL)
	}
	if u.PaymentRejectionReason != nil {
		set("payment_rejection_reason", *u.PaymentRejectionReason)
	}
	if u.FinalWorkURL != nil {
		set("final_work_url", *u.FinalWorkURL)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, orderID)
	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args
}

// Messages

func (d *DatabaseClient) CreateMessage(ctx context.Context, orderID, senderID uuid.UUID, content, imageURL string) (*models.Message, error) {
	var msg models.Message
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO messages (order_id, sender_id, content, image_url)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, order_id, sender_id, content, image_url, created_at
	`, orderID, senderID, content, imageURL).Scan(
		&msg.ID, &msg.OrderID, &msg.SenderID, &msg.Content, &msg.ImageURL, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns an order's messages oldest first.
func (d *DatabaseClient) ListMessages(ctx context.Context, orderID uuid.UUID) ([]models.Message, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT m.id, m.order_id, m.sender_id, m.content, m.image_url, m.created_at,
			p.full_name, p.email
		FROM messages m
		LEFT JOIN profiles p ON p.id = m.sender_id
		WHERE m.order_id = $1
		ORDER BY m.created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID, &msg.OrderID, &msg.SenderID, &msg.Content, &msg.ImageURL, &msg.CreatedAt,
			&msg.SenderName, &msg.SenderEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Gallery

const galleryColumns = `id, title, description, image_url, thumbnail_url, created_by, created_at, updated_at`

func scanGalleryItem(row interface{ Scan(...any) error }, g *models.GalleryItem) error {
	return row.Scan(&g.ID, &g.Title, &g.Description, &g.ImageURL, &g.ThumbnailURL, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
}

func (d *DatabaseClient) CreateGalleryItem(ctx context.Context, item *models.GalleryItem) (*models.GalleryItem, error) {
	var created models.GalleryItem
	err := scanGalleryItem(d.db.QueryRowContext(ctx, `
		INSERT INTO gallery_items (id, title, description, image_url, thumbnail_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+galleryColumns,
		item.ID, item.Title, item.Description, item.ImageURL, item.ThumbnailURL, item.CreatedBy,
	), &created)
	if err != nil {
		return nil, fmt.Errorf("failed to create gallery item: %w", err)
	}
	return &created, nil
}

func (d *DatabaseClient) GetGalleryItem(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	var item models.GalleryItem
	err := scanGalleryItem(d.db.QueryRowContext(ctx, `
		SELECT `+galleryColumns+`
		FROM gallery_items
		WHERE id = $1
	`, id), &item)
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery item: %w", notFound(err))
	}
	return &item, nil
}

// ListGalleryItems returns gallery items newest first.
func (d *DatabaseClient) ListGalleryItems(ctx context.Context) ([]models.GalleryItem, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+galleryColumns+`
		FROM gallery_items
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery items: %w", err)
	}
	defer rows.Close()

	var items []models.GalleryItem
	for rows.Next() {
		var item models.GalleryItem
		if err := scanGalleryItem(rows, &item); err != nil {
			return nil, fmt.Errorf("failed to scan gallery item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (d *DatabaseClient) DeleteGalleryItem(ctx context.Context, id uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM gallery_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gallery item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete gallery item: %w", ErrNoRows)
	}
	return nil
}

// Stats

func (d *DatabaseClient) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{OrdersByStatus: make(map[workflow.Status]int)}

	err := d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM gallery_items)
	`).Scan(&stats.Users, &stats.Orders, &stats.GalleryItems)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status workflow.Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		stats.OrdersByStatus[status] = count
	}
	return stats, rows.Err()
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
