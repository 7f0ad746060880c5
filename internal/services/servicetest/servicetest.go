// Package servicetest provides in-memory stores for exercising services and
// handlers without Supabase. Exported maps may be read and modified directly
// by tests that do not run requests concurrently.
package servicetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/supabase"
	"commission-art-backend/internal/workflow"
)

// PNGHeader is enough of a PNG file for content sniffing.
var PNGHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// MediaBase prefixes every URL returned by Media.
const MediaBase = "https://project.supabase.co/storage/v1/object/public/"

var Buckets = services.Buckets{
	OrderImages:    "order-images",
	FinalWorks:     "final-works",
	GalleryImages:  "gallery-images",
	ThumbnailWidth: 400,
}

// Store keeps rows in maps and implements every store interface.
type Store struct {
	mu       sync.Mutex
	Orders   map[uuid.UUID]*models.Order
	Messages []models.Message
	Gallery  map[uuid.UUID]*models.GalleryItem
	Profiles map[uuid.UUID]*models.Profile

	// Updates counts successful UpdateOrder calls.
	Updates int
	// FailNext, when set, is returned by the next write and then cleared.
	FailNext error
}

var (
	_ services.OrderStore   = (*Store)(nil)
	_ services.MessageStore = (*Store)(nil)
	_ services.GalleryStore = (*Store)(nil)
	_ services.ProfileStore = (*Store)(nil)
	_ services.MediaStore   = (*Media)(nil)
	_ services.Identity     = (*Identity)(nil)
)

func NewStore() *Store {
	return &Store{
		Orders:   make(map[uuid.UUID]*models.Order),
		Gallery:  make(map[uuid.UUID]*models.GalleryItem),
		Profiles: make(map[uuid.UUID]*models.Profile),
	}
}

func (s *Store) fail() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func noRows(what string) error {
	return fmt.Errorf("failed to get %s: %w", what, supabase.ErrNoRows)
}

// AddProfile inserts a profile with the given role and returns it.
func (s *Store) AddProfile(role workflow.Role) *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	p := &models.Profile{ID: id, Email: id.String() + "@example.com", Role: role, CreatedAt: time.Now()}
	s.Profiles[id] = p
	cp := *p
	return &cp
}

// AddOrder inserts an order owned by userID directly in status.
func (s *Store) AddOrder(userID uuid.UUID, status workflow.Status) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "Portrait",
		Description: strings.Repeat("x", 50),
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	s.Orders[o.ID] = o
	cp := *o
	return &cp
}

func (s *Store) CreateOrder(_ context.Context, orderID, userID uuid.UUID, title, description string, refs []string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	now := time.Now()
	o := &models.Order{
		ID:              orderID,
		UserID:          userID,
		Title:           title,
		Description:     description,
		ReferenceImages: refs,
		Status:          workflow.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.Orders[orderID] = o
	cp := *o
	return &cp, nil
}

func (s *Store) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return nil, noRows("order")
	}
	cp := *o
	return &cp, nil
}

func (s *Store) ListOrders(_ context.Context, f models.OrderFilter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.Orders {
		if f.UserID.Valid && o.UserID != f.UserID.UUID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateOrder(_ context.Context, id uuid.UUID, u workflow.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	o, ok := s.Orders[id]
	if !ok {
		return noRows("order")
	}
	s.Updates++
	o.Status = u.Status
	if u.ArtistID != nil {
		o.ArtistID = uuid.NullUUID{UUID: *u.ArtistID, Valid: true}
	}
	if u.RejectionReason != nil {
		o.RejectionReason.String, o.RejectionReason.Valid = *u.RejectionReason, true
	}
	if u.Price != nil {
		o.Price = decimal.NewNullDecimal(*u.Price)
	}
	if u.PaymentScreenshotURL != nil {
		o.PaymentScreenshotURL.String, o.PaymentScreenshotURL.Valid = *u.PaymentScreenshotURL, true
	}
	if u.PaymentRejectionReason != nil {
		o.PaymentRejectionReason.String, o.PaymentRejectionReason.Valid = *u.PaymentRejectionReason, true
	}
	if u.FinalWorkURL != nil {
		o.FinalWorkURL.String, o.FinalWorkURL.Valid = *u.FinalWorkURL, true
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (s *Store) Stats(context.Context) (*models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &models.Stats{
		Users:          len(s.Profiles),
		Orders:         len(s.Orders),
		GalleryItems:   len(s.Gallery),
		OrdersByStatus: make(map[workflow.Status]int),
	}
	for _, o := range s.Orders {
		st.OrdersByStatus[o.Status]++
	}
	return st, nil
}

func (s *Store) CreateMessage(_ context.Context, orderID, senderID uuid.UUID, content, imageURL string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	msg := models.Message{ID: uuid.New(), OrderID: orderID, SenderID: senderID, Content: content, CreatedAt: time.Now()}
	if imageURL != "" {
		msg.ImageURL.String, msg.ImageURL.Valid = imageURL, true
	}
	s.Messages = append(s.Messages, msg)
	return &msg, nil
}

func (s *Store) ListMessages(_ context.Context, orderID uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, msg := range s.Messages {
		if msg.OrderID == orderID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *Store) CreateGalleryItem(_ context.Context, item *models.GalleryItem) (*models.GalleryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	cp := *item
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	s.Gallery[item.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetGalleryItem(_ context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.Gallery[id]
	if !ok {
		return nil, noRows("gallery item")
	}
	cp := *g
	return &cp, nil
}

func (s *Store) ListGalleryItems(context.Context) ([]models.GalleryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GalleryItem
	for _, g := range s.Gallery {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteGalleryItem(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Gallery[id]; !ok {
		return noRows("gallery item")
	}
	delete(s.Gallery, id)
	return nil
}

func (s *Store) CreateProfile(_ context.Context, id uuid.UUID, email, fullName string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Profiles[id]; !ok {
		p := &models.Profile{ID: id, Email: email, Role: workflow.RoleUser, CreatedAt: time.Now()}
		if fullName != "" {
			p.FullName.String, p.FullName.Valid = fullName, true
		}
		s.Profiles[id] = p
	}
	cp := *s.Profiles[id]
	return &cp, nil
}

func (s *Store) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Profiles[id]
	if !ok {
		return nil, noRows("profile")
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProfiles(context.Context) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, p := range s.Profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Media records uploads and builds URLs shaped like Supabase public URLs.
type Media struct {
	mu      sync.Mutex
	Uploads map[string]string
	Upserts map[string]bool
	Removed []string

	// FailAfter makes uploads fail once this many have succeeded. Negative
	// disables failures.
	FailAfter int
}

func NewMedia() *Media {
	return &Media{
		Uploads:   make(map[string]string),
		Upserts:   make(map[string]bool),
		FailAfter: -1,
	}
}

func (m *Media) Upload(bucket, path string, _ []byte, contentType string, upsert bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAfter == 0 {
		return "", errors.New("storage unavailable")
	}
	if m.FailAfter > 0 {
		m.FailAfter--
	}
	key := bucket + "/" + path
	m.Uploads[key] = contentType
	m.Upserts[key] = upsert
	return MediaBase + key, nil
}

func (m *Media) ThumbnailURL(bucket, path string, width int) string {
	return fmt.Sprintf("https://project.supabase.co/storage/v1/render/image/public/%s/%s?width=%d", bucket, path, width)
}

func (m *Media) Remove(bucket string, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		m.Removed = append(m.Removed, bucket+"/"+p)
		delete(m.Uploads, bucket+"/"+p)
	}
	return nil
}

func (m *Media) PathFromPublicURL(bucket, url string) (string, bool) {
	path, ok := strings.CutPrefix(url, MediaBase+bucket+"/")
	return path, ok && path != ""
}

// Keys lists stored objects as "bucket/path", sorted.
func (m *Media) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Uploads))
	for k := range m.Uploads {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Identity is a GoTrue stand-in keyed by email.
type Identity struct {
	mu        sync.Mutex
	accounts  map[string]uuid.UUID
	passwords map[string]string
	SignedOut []string
	// Down makes every call fail as if the provider were unreachable.
	Down bool
}

func NewIdentity() *Identity {
	return &Identity{
		accounts:  make(map[string]uuid.UUID),
		passwords: make(map[string]string),
	}
}

var errUnreachable = errors.New("dial tcp: connection refused")

func (i *Identity) SignUp(_ context.Context, email, password, _ string) (*supabase.AuthSession, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Down {
		return nil, errUnreachable
	}
	if _, ok := i.accounts[email]; ok {
		return nil, fmt.Errorf("failed to sign up: %w", supabase.ErrAuthRejected)
	}
	id := uuid.New()
	i.accounts[email] = id
	i.passwords[email] = password
	return &supabase.AuthSession{UserID: id, Email: email, AccessToken: "access-" + id.String(), ExpiresIn: 3600}, nil
}

func (i *Identity) SignIn(_ context.Context, email, password string) (*supabase.AuthSession, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Down {
		return nil, errUnreachable
	}
	id, ok := i.accounts[email]
	if !ok || i.passwords[email] != password {
		return nil, fmt.Errorf("failed to sign in: %w", supabase.ErrAuthRejected)
	}
	return &supabase.AuthSession{UserID: id, Email: email, AccessToken: "access-" + id.String(), ExpiresIn: 3600}, nil
}

func (i *Identity) SignOut(_ context.Context, token string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Down {
		return errUnreachable
	}
	i.SignedOut = append(i.SignedOut, token)
	return nil
}
