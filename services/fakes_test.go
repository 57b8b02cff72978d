package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/models"
	"github.com/punguzo/mlm_backend/repositories"
)

var errInjected = errors.New("injected failure")

// memStore backs every fake repository. fakeTx snapshots it to emulate rollbacks.
type memStore struct {
	mu            sync.Mutex
	members       map[primitive.ObjectID]models.Member
	orders        map[primitive.ObjectID]models.Order
	products      map[primitive.ObjectID]models.Product
	views         []models.ProductView
	ledger        []models.PointTransaction
	settlements   map[string]bool
	access        map[string]models.AccessToken
	notifications []models.Notification
	counters      map[string]int64

	// failCreditFor makes CreditPoints fail for one member.
	failCreditFor primitive.ObjectID
	// listCalls records every product List query.
	listCalls []listCall
}

type listCall struct {
	filter models.ProductFilter
	limit  int64
}

func newMemStore() *memStore {
	return &memStore{
		members:     map[primitive.ObjectID]models.Member{},
		orders:      map[primitive.ObjectID]models.Order{},
		products:    map[primitive.ObjectID]models.Product{},
		settlements: map[string]bool{},
		access:      map[string]models.AccessToken{},
		counters:    map[string]int64{},
	}
}

type storeSnapshot struct {
	members       map[primitive.ObjectID]models.Member
	orders        map[primitive.ObjectID]models.Order
	products      map[primitive.ObjectID]models.Product
	views         []models.ProductView
	ledger        []models.PointTransaction
	settlements   map[string]bool
	notifications []models.Notification
	counters      map[string]int64
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeSnapshot{
		members:       copyMap(s.members),
		orders:        copyMap(s.orders),
		products:      copyMap(s.products),
		views:         append([]models.ProductView(nil), s.views...),
		ledger:        append([]models.PointTransaction(nil), s.ledger...),
		settlements:   copyMap(s.settlements),
		notifications: append([]models.Notification(nil), s.notifications...),
		counters:      copyMap(s.counters),
	}
}

func (s *memStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = snap.members
	s.orders = snap.orders
	s.products = snap.products
	s.views = snap.views
	s.ledger = snap.ledger
	s.settlements = snap.settlements
	s.notifications = snap.notifications
	s.counters = snap.counters
}

func (s *memStore) addMember(m models.Member) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.AccountStatus == "" {
		m.AccountStatus = models.AccountActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.members[m.ID] = m
	return m
}

func (s *memStore) member(id primitive.ObjectID) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id]
}

func (s *memStore) addProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) product(id primitive.ObjectID) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) addOrder(o models.Order) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.orders[o.ID] = o
	return o
}

func (s *memStore) order(id primitive.ObjectID) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) ledgerRows() []models.PointTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PointTransaction(nil), s.ledger...)
}

type txMarker struct{}

// fakeTx runs fn against the shared store and restores the snapshot when fn fails.
// Nested calls join the outer transaction.
type fakeTx struct {
	store *memStore
	calls int
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	t.calls++
	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type fakeMembers struct{ s *memStore }

func (r fakeMembers) FindByID(_ context.Context, id primitive.ObjectID) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &m, nil
}

func (r fakeMembers) findBy(match func(models.Member) bool) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if match(m) {
			m := m
			return &m, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeMembers) FindBySellerID(_ context.Context, sellerID string) (*models.Member, error) {
	return r.findBy(func(m models.Member) bool { return m.SellerID == sellerID })
}

func (r fakeMembers) FindByPhone(_ context.Context, phone string) (*models.Member, error) {
	return r.findBy(func(m models.Member) bool { return m.PhoneNumber == phone })
}

func (r fakeMembers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := r.findBy(func(m models.Member) bool { return m.Email != "" && m.Email == email })
	return err == nil, nil
}

func (r fakeMembers) UplineOf(ctx context.Context, member *models.Member) (*models.Member, error) {
	if member.UplineID == nil {
		return nil, nil
	}
	upline, err := r.FindByID(ctx, *member.UplineID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return upline, err
}

func (r fakeMembers) DownlinesOf(_ context.Context, uplineID primitive.ObjectID) ([]models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Member{}
	for _, m := range r.s.members {
		if m.UplineID != nil && *m.UplineID == uplineID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r fakeMembers) CountDownlines(ctx context.Context, uplineID primitive.ObjectID) (int64, error) {
	downlines, err := r.DownlinesOf(ctx, uplineID)
	return int64(len(downlines)), err
}

func (r fakeMembers) Create(_ context.Context, member *models.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.PhoneNumber == member.PhoneNumber || m.SellerID == member.SellerID {
			return repositories.ErrDuplicate
		}
	}
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	r.s.members[member.ID] = *member
	return nil
}

func (r fakeMembers) mutate(id primitive.ObjectID, fn func(m *models.Member)) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	fn(&m)
	r.s.members[id] = m
	return &m, nil
}

func (r fakeMembers) IncrementDownlines(_ context.Context, id primitive.ObjectID) error {
	_, err := r.mutate(id, func(m *models.Member) { m.TotalDownlines++ })
	return err
}

func (r fakeMembers) CreditPoints(_ context.Context, id primitive.ObjectID, points int64, amount decimal.Decimal) (*models.Member, error) {
	if !r.s.failCreditFor.IsZero() && r.s.failCreditFor == id {
		return nil, errInjected
	}
	return r.mutate(id, func(m *models.Member) {
		m.Points += points
		m.CommissionBalance = m.CommissionBalance.Add(amount)
	})
}

func (r fakeMembers) AddTeamPoints(_ context.Context, id primitive.ObjectID, points int64) error {
	_, err := r.mutate(id, func(m *models.Member) { m.TeamPoints += points })
	return err
}

func (r fakeMembers) AddSalesVolume(_ context.Context, id primitive.ObjectID, amount decimal.Decimal) error {
	_, err := r.mutate(id, func(m *models.Member) { m.TotalSalesVolume = m.TotalSalesVolume.Add(amount) })
	return err
}

func (r fakeMembers) UpdateFCMToken(_ context.Context, id primitive.ObjectID, token string) error {
	_, err := r.mutate(id, func(m *models.Member) { m.FCMToken = token })
	return err
}

func (r fakeMembers) UpdateProfileImage(_ context.Context, id primitive.ObjectID, path string) error {
	_, err := r.mutate(id, func(m *models.Member) { m.ProfileImage = path })
	return err
}

type fakeOrders struct{ s *memStore }

func (r fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &o, nil
}

func (r fakeOrders) Create(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.s.orders[order.ID] = *order
	return nil
}

func (r fakeOrders) MarkCompleted(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = models.OrderCompleted
	o.PaymentStatus = models.PaymentPaid
	o.UpdatedAt = at
	r.s.orders[id] = o
	return nil
}

func (r fakeOrders) CompletedBetween(_ context.Context, productID primitive.ObjectID, from, to time.Time) (int64, decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	revenue := decimal.Zero
	for _, o := range r.s.orders {
		if o.ProductID != productID || o.Status != models.OrderCompleted {
			continue
		}
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		count++
		revenue = revenue.Add(o.TotalAmount)
	}
	return count, revenue, nil
}

func (r fakeOrders) ProductIDsPurchasedBy(_ context.Context, memberID primitive.ObjectID, since time.Time) ([]primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []primitive.ObjectID
	for _, o := range r.s.orders {
		if o.MemberID == memberID && !o.CreatedAt.Before(since) {
			ids = append(ids, o.ProductID)
		}
	}
	return ids, nil
}

func (r fakeOrders) AttachPayment(_ context.Context, id primitive.ObjectID, reference string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for otherID, other := range r.s.orders {
		if otherID != id && other.PaymentReference == reference {
			return repositories.ErrDuplicate
		}
	}
	o.PaymentReference = reference
	o.PaymentStatus = models.PaymentPending
	o.UpdatedAt = at
	r.s.orders[id] = o
	return nil
}

func (r fakeOrders) SetPaymentStatus(_ context.Context, reference, status string, at time.Time) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, o := range r.s.orders {
		if o.PaymentReference == reference {
			o.PaymentStatus = status
			o.UpdatedAt = at
			r.s.orders[id] = o
			return &o, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeProducts struct{ s *memStore }

func (r fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r fakeProducts) FindByExternalIDs(_ context.Context, externalIDs []string) (map[string]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range externalIDs {
		wanted[id] = true
	}
	out := map[string]models.Product{}
	for _, p := range r.s.products {
		if wanted[p.ExternalID] {
			out[p.ExternalID] = p
		}
	}
	return out, nil
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func matchesFilter(p models.Product, f models.ProductFilter) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, p.Category) {
		return false
	}
	if containsString(f.ExcludeCategories, p.Category) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	if !f.ExcludeID.IsZero() && p.ID == f.ExcludeID {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == p.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r fakeProducts) List(_ context.Context, filter models.ProductFilter, skip, limit int64) ([]models.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Product{}
	for _, p := range r.s.products {
		if matchesFilter(p, filter) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if filter.Sort == models.SortTrending {
			if c := TrendingScore(&a).Cmp(TrendingScore(&b)); c != 0 {
				return c > 0
			}
			return a.ID.Hex() < b.ID.Hex()
		}
		if a.PopularityScore != b.PopularityScore {
			return a.PopularityScore > b.PopularityScore
		}
		if filter.Sort != models.SortPopularRevenue && a.MonthlySales != b.MonthlySales {
			return a.MonthlySales > b.MonthlySales
		}
		if c := a.MonthlyRevenue.Cmp(b.MonthlyRevenue); c != 0 {
			return c > 0
		}
		return a.ID.Hex() < b.ID.Hex()
	})
	r.s.listCalls = append(r.s.listCalls, listCall{filter: filter, limit: limit})
	total := int64(len(out))
	if skip >= total {
		return []models.Product{}, total, nil
	}
	out = out[skip:]
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r fakeProducts) CategoriesOf(_ context.Context, ids []primitive.ObjectID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		p, ok := r.s.products[id]
		if !ok || p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out, nil
}

func (r fakeProducts) InsertMany(_ context.Context, products []models.Product) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range products {
		for _, existing := range r.s.products {
			if existing.ExternalID == p.ExternalID {
				return 0, repositories.ErrDuplicate
			}
		}
	}
	for i := range products {
		if products[i].ID.IsZero() {
			products[i].ID = primitive.NewObjectID()
		}
		r.s.products[products[i].ID] = products[i]
	}
	return len(products), nil
}

func (r fakeProducts) BulkUpdate(_ context.Context, rows []repositories.RowUpdate) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matched := 0
	for _, row := range rows {
		p, ok := r.s.products[row.ID]
		if !ok {
			continue
		}
		for col, value := range row.Fields {
			setProductColumn(&p, col, value)
		}
		r.s.products[row.ID] = p
		matched++
	}
	return matched, nil
}

func setProductColumn(p *models.Product, col string, value interface{}) {
	str := func() string { s, _ := value.(string); return s }
	float := func() *float64 {
		if f, ok := value.(float64); ok {
			return &f
		}
		return nil
	}
	switch col {
	case "name":
		p.Name = str()
	case "description":
		p.Description = str()
	case "category":
		p.Category = str()
	case "merchantName":
		p.MerchantName = str()
	case "pickupLocations":
		p.PickupLocations = str()
	case "shopRegion":
		p.ShopRegion = str()
	case "region":
		p.Region = str()
	case "sellingPrice":
		p.SellingPrice = float()
	case "originalPrice":
		p.OriginalPrice = float()
	case "discountPrice":
		p.DiscountPrice = float()
	case "totalItemAvailable":
		if n, ok := value.(int64); ok {
			p.TotalItemAvailable = &n
		} else {
			p.TotalItemAvailable = nil
		}
	case "withinRegionDeliveryFee":
		p.WithinRegionDeliveryFee, _ = value.(float64)
	case "outsideRegionDeliveryFee":
		p.OutsideRegionDeliveryFee, _ = value.(float64)
	case "isDeliveryAllowed":
		p.IsDeliveryAllowed, _ = value.(bool)
	case "mediaJson":
		p.MediaJSON = str()
	case "rawJson":
		p.RawJSON = str()
	case "updatedAt":
		p.UpdatedAt, _ = value.(time.Time)
	}
}

func (r fakeProducts) UpdateMetrics(_ context.Context, id primitive.ObjectID, metrics models.ProductMetrics) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.MonthlyViews = metrics.MonthlyViews
	p.MonthlySales = metrics.MonthlySales
	p.MonthlyRevenue = metrics.MonthlyRevenue
	p.PopularityScore = metrics.PopularityScore
	at := metrics.LastViewedAt
	p.LastViewedAt = &at
	r.s.products[id] = p
	return nil
}

func (r fakeProducts) SetLastSoldAt(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.products[id]; ok {
		p.LastSoldAt = &at
		r.s.products[id] = p
	}
	return nil
}

type fakeViews struct{ s *memStore }

func (r fakeViews) Insert(_ context.Context, view *models.ProductView) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	view.ID = primitive.NewObjectID()
	r.s.views = append(r.s.views, *view)
	return nil
}

func (r fakeViews) CountBetween(_ context.Context, productID primitive.ObjectID, from, to time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, v := range r.s.views {
		if v.ProductID == productID && !v.ViewedAt.Before(from) && v.ViewedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r fakeViews) DailyCounts(_ context.Context, productID primitive.ObjectID, from, to time.Time) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]int64{}
	for _, v := range r.s.views {
		if v.ProductID == productID && !v.ViewedAt.Before(from) && v.ViewedAt.Before(to) {
			out[v.ViewedAt.Format("2006-01-02")]++
		}
	}
	return out, nil
}

func (r fakeViews) ProductIDsViewedBy(_ context.Context, userID primitive.ObjectID, since time.Time) ([]primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []primitive.ObjectID
	for _, v := range r.s.views {
		if v.UserID != nil && *v.UserID == userID && !v.ViewedAt.Before(since) {
			ids = append(ids, v.ProductID)
		}
	}
	return ids, nil
}

type fakeLedger struct{ s *memStore }

func (r fakeLedger) Insert(_ context.Context, tx *models.PointTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx.ID = primitive.NewObjectID()
	r.s.ledger = append(r.s.ledger, *tx)
	return nil
}

func (r fakeLedger) ListByUser(_ context.Context, userID primitive.ObjectID, txType string) ([]models.PointTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.PointTransaction{}
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		row := r.s.ledger[i]
		if row.UserID == userID && (txType == "" || row.Type == txType) {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeSettlements struct{ s *memStore }

func (r fakeSettlements) Record(_ context.Context, orderID primitive.ObjectID, kind string, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := orderID.Hex() + "/" + kind
	if r.s.settlements[key] {
		return repositories.ErrDuplicate
	}
	r.s.settlements[key] = true
	return nil
}

type fakeAccess struct{ s *memStore }

func (r fakeAccess) Get(_ context.Context, key string) (*models.AccessToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.access[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r fakeAccess) Put(_ context.Context, token *models.AccessToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.access[token.Key] = *token
	return nil
}

type fakeNotifications struct{ s *memStore }

func (r fakeNotifications) Insert(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = primitive.NewObjectID()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r fakeNotifications) ListByUser(_ context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		if r.s.notifications[i].UserID == userID {
			all = append(all, r.s.notifications[i])
		}
	}
	if skip >= int64(len(all)) {
		return []models.Notification{}, nil
	}
	all = all[skip:]
	if limit > 0 && int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r fakeNotifications) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, row := range r.s.notifications {
		if row.UserID == userID && !row.IsRead {
			n++
		}
	}
	return n, nil
}

func (r fakeNotifications) MarkRead(_ context.Context, userID, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id && r.s.notifications[i].UserID == userID {
			r.s.notifications[i].IsRead = true
			r.s.notifications[i].ReadAt = &at
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r fakeNotifications) MarkAllRead(_ context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.notifications {
		if r.s.notifications[i].UserID == userID && !r.s.notifications[i].IsRead {
			r.s.notifications[i].IsRead = true
			r.s.notifications[i].ReadAt = &at
			n++
		}
	}
	return n, nil
}

type fakeCounters struct{ s *memStore }

func (r fakeCounters) Next(_ context.Context, name string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.counters[name]++
	return r.s.counters[name], nil
}

type sentAlert struct {
	kind      string
	memberID  primitive.ObjectID
	amount    decimal.Decimal
	level     *int
	orderID   *primitive.ObjectID
	milestone string
	points    int64
}

// recordingNotifier keeps every alert it is asked to send.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []sentAlert
}

func (n *recordingNotifier) record(a sentAlert) {
	n.mu.Lock()
	n.alerts = append(n.alerts, a)
	n.mu.Unlock()
}

func (n *recordingNotifier) SendCommissionAlert(_ context.Context, recipientID primitive.ObjectID, amount decimal.Decimal, orderID *primitive.ObjectID, level *int) {
	n.record(sentAlert{kind: models.NotificationCommission, memberID: recipientID, amount: amount, orderID: orderID, level: level})
}

func (n *recordingNotifier) SendDownlineRegistrationAlert(_ context.Context, downlineID primitive.ObjectID, _ string) {
	n.record(sentAlert{kind: models.NotificationDownline, memberID: downlineID})
}

func (n *recordingNotifier) SendTeamMilestoneAlert(_ context.Context, memberID primitive.ObjectID, milestone string, points int64) {
	n.record(sentAlert{kind: models.NotificationMilestone, memberID: memberID, milestone: milestone, points: points})
}

func (n *recordingNotifier) SendSalesTargetAlert(_ context.Context, memberID primitive.ObjectID, _, current int64) {
	n.record(sentAlert{kind: models.NotificationSalesTarget, memberID: memberID, points: current})
}

func (n *recordingNotifier) ofKind(kind string) []sentAlert {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentAlert
	for _, a := range n.alerts {
		if a.kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// fixture wires every service over one in-memory store.
type fixture struct {
	store         *memStore
	tx            *fakeTx
	notifier      *recordingNotifier
	members       fakeMembers
	orders        fakeOrders
	products      fakeProducts
	views         fakeViews
	points        *PointService
	commissions   *CommissionService
	popularity    *ProductViewService
	orderService  *OrderService
	registration  *RegistrationService
	notifications fakeNotifications
}

func newFixture(teamPointsMode string, commissionOnComplete bool) *fixture {
	store := newMemStore()
	// Generated seller ids start well above the ones tests assign by hand.
	store.counters[sellerIDSequence] = 1000
	tx := &fakeTx{store: store}
	notifier := &recordingNotifier{}
	f := &fixture{
		store:         store,
		tx:            tx,
		notifier:      notifier,
		members:       fakeMembers{store},
		orders:        fakeOrders{store},
		products:      fakeProducts{store},
		views:         fakeViews{store},
		notifications: fakeNotifications{store},
	}
	f.points = NewPointService(f.members, f.orders, fakeLedger{store}, fakeSettlements{store}, tx, notifier, teamPointsMode)
	f.commissions = NewCommissionService(f.members, f.orders, fakeSettlements{store}, fakeLedger{store}, f.points, tx, notifier)
	f.popularity = NewProductViewService(f.products, f.views, f.orders, tx)
	f.orderService = NewOrderService(f.orders, f.products, f.members, f.popularity, f.points, f.commissions, tx, commissionOnComplete)
	f.registration = NewRegistrationService(f.members, fakeCounters{store}, tx, notifier, nil, nil)
	return f
}

// chain adds a line of n members, each sponsored by the previous one. Index 0 is the root.
func (f *fixture) chain(n int) []models.Member {
	out := make([]models.Member, 0, n)
	var upline *primitive.ObjectID
	for i := 0; i < n; i++ {
		m := f.store.addMember(models.Member{UplineID: upline, FirstName: "Member", SellerLevel: 1})
		out = append(out, m)
		id := m.ID
		upline = &id
	}
	return out
}
