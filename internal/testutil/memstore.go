// Package testutil provee un almacén transaccional en memoria que implementa los puertos
// de repositorio y el TxRunner, para pruebas unitarias sin PostgreSQL.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

type notificationKey struct {
	kind      entity.NotificationKind
	reagentID int64
	supplyID  int64
	eventDate time.Time
	message   string
}

type memState struct {
	nextID        int64
	sites         map[int64]bool
	lots          map[entity.LotKind]map[int64]entity.Lot
	stock         map[int64]entity.StockRow
	dims          map[entity.DimensionKind]map[int64]entity.Dimension
	notifications map[int64]entity.Notification
	subscribers   []entity.Subscriber
	audit         []entity.AuditEntry
}

func newMemState() *memState {
	return &memState{
		sites: map[int64]bool{},
		lots: map[entity.LotKind]map[int64]entity.Lot{
			entity.LotKindReagent: {},
			entity.LotKindSupply:  {},
		},
		stock:         map[int64]entity.StockRow{},
		dims:          map[entity.DimensionKind]map[int64]entity.Dimension{},
		notifications: map[int64]entity.Notification{},
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		nextID:        st.nextID,
		sites:         make(map[int64]bool, len(st.sites)),
		lots:          make(map[entity.LotKind]map[int64]entity.Lot, len(st.lots)),
		stock:         make(map[int64]entity.StockRow, len(st.stock)),
		dims:          make(map[entity.DimensionKind]map[int64]entity.Dimension, len(st.dims)),
		notifications: make(map[int64]entity.Notification, len(st.notifications)),
		subscribers:   append([]entity.Subscriber(nil), st.subscribers...),
		audit:         append([]entity.AuditEntry(nil), st.audit...),
	}
	for k, v := range st.sites {
		c.sites[k] = v
	}
	for kind, m := range st.lots {
		cm := make(map[int64]entity.Lot, len(m))
		for k, v := range m {
			cm[k] = v
		}
		c.lots[kind] = cm
	}
	for k, v := range st.stock {
		c.stock[k] = v
	}
	for kind, m := range st.dims {
		cm := make(map[int64]entity.Dimension, len(m))
		for k, v := range m {
			cm[k] = v
		}
		c.dims[kind] = cm
	}
	for k, v := range st.notifications {
		c.notifications[k] = v
	}
	return c
}

func (st *memState) id() int64 {
	st.nextID++
	return st.nextID
}

// MemStore almacén en memoria. Run serializa las transacciones (equivale a bloquear todas
// las filas) y descarta los cambios si la función devuelve error.
type MemStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time

	// Fail, si no es nil, se consulta antes de cada escritura; un error la aborta.
	// op tiene la forma "<repo>.<Método>" (p. ej. "stock.Delete").
	Fail func(op string, id int64) error
}

// NewMemStore crea un almacén vacío.
func NewMemStore() *MemStore {
	return &MemStore{state: newMemState(), now: time.Now}
}

// Run implementa inventory.TxRunner.
func (s *MemStore) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.state.clone()
	if err := fn(s.reposFor(tx)); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *MemStore) reposFor(tx *memState) inventory.TxRepos {
	return inventory.TxRepos{
		Lots:       &memLots{s: s, tx: tx},
		Stock:      &memStock{s: s, tx: tx},
		Dimensions: &memDims{s: s, tx: tx},
		Audit:      &memAudit{s: s, tx: tx},
	}
}

// with ejecuta fn sobre el estado de la transacción o, fuera de ella, sobre el estado confirmado.
func (s *MemStore) with(tx *memState, fn func(st *memState) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemStore) fail(op string, id int64) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, id)
}

// Repositorios fuera de transacción.

func (s *MemStore) Lots() repository.LotRepository {
	return &memLots{s: s}
}

func (s *MemStore) Stock() repository.StockRepository {
	return &memStock{s: s}
}

func (s *MemStore) Dimensions() repository.DimensionRepository {
	return &memDims{s: s}
}

func (s *MemStore) Notifications() repository.NotificationRepository {
	return &memNotifications{s: s}
}

func (s *MemStore) Subscribers() repository.SubscriberRepository {
	return &memSubscribers{s: s}
}

func (s *MemStore) Sites() repository.SiteRepository {
	return &memSites{s: s}
}

func (s *MemStore) Audit() repository.AuditRepository {
	return &memAudit{s: s}
}

// Datos de prueba.

// AddSite registra una sede.
func (s *MemStore) AddSite(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.sites[id] = true
}

// AddSubscriber suscribe un correo a la sede.
func (s *MemStore) AddSubscriber(siteID int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.subscribers = append(s.state.subscribers, entity.Subscriber{ID: s.state.id(), SiteID: siteID, Email: email})
}

// AddDimension inserta una dimensión y devuelve su id.
func (s *MemStore) AddDimension(kind entity.DimensionKind, siteID int64, name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := entity.Dimension{ID: s.state.id(), SiteID: siteID, Name: name}
	if s.state.dims[kind] == nil {
		s.state.dims[kind] = map[int64]entity.Dimension{}
	}
	s.state.dims[kind][d.ID] = d
	return d.ID
}

// AddStockRow inserta una fila de existencias directamente (simula deriva entre libro y proyección).
func (s *MemStore) AddStockRow(row entity.StockRow) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = s.state.id()
	s.state.stock[row.ID] = row
	return row.ID
}

// StockRows devuelve las filas de existencias de la sede ordenadas por id.
func (s *MemStore) StockRows(siteID int64) []entity.StockRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.StockRow
	for _, r := range s.state.stock {
		if r.SiteID == siteID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LotCount número de lotes del tipo en la sede.
func (s *MemStore) LotCount(kind entity.LotKind, siteID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.state.lots[kind] {
		if l.SiteID == siteID {
			n++
		}
	}
	return n
}

// DimensionCount número de filas de la dimensión en la sede.
func (s *MemStore) DimensionCount(kind entity.DimensionKind, siteID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.state.dims[kind] {
		if d.SiteID == siteID {
			n++
		}
	}
	return n
}

// AllNotifications devuelve las notificaciones de la sede ordenadas por id.
func (s *MemStore) AllNotifications(siteID int64) []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.notificationsOf(siteID, false)
}

// AuditEntries devuelve el registro de auditoría.
func (s *MemStore) AuditEntries() []entity.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AuditEntry(nil), s.state.audit...)
}

// ────────────────────────────────────────────────────────────────────────────
// Lotes
// ────────────────────────────────────────────────────────────────────────────

type memLots struct {
	s  *MemStore
	tx *memState
}

var _ repository.LotRepository = (*memLots)(nil)

func productDimension(kind entity.LotKind) entity.DimensionKind {
	if kind == entity.LotKindSupply {
		return entity.DimensionSupplyName
	}
	return entity.DimensionReagentName
}

func vendorDimension(kind entity.LotKind) entity.DimensionKind {
	if kind == entity.LotKindSupply {
		return entity.DimensionLaboratory
	}
	return entity.DimensionVendor
}

// withNames completa los nombres resueltos como lo hace el JOIN en PostgreSQL.
func (st *memState) withNames(l entity.Lot) *entity.Lot {
	l.ProductName = st.dims[productDimension(l.Kind)][l.ProductID].Name
	l.VendorName = st.dims[vendorDimension(l.Kind)][l.VendorID].Name
	return &l
}

func (r *memLots) Create(_ context.Context, lot *entity.Lot) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("lots.Create", 0); err != nil {
			return err
		}
		lot.ID = st.id()
		lot.CreatedAt = r.s.now()
		lot.UpdatedAt = lot.CreatedAt
		st.lots[lot.Kind][lot.ID] = *lot
		return nil
	})
}

func (r *memLots) get(kind entity.LotKind, siteID, id int64) (*entity.Lot, error) {
	var out *entity.Lot
	err := r.s.with(r.tx, func(st *memState) error {
		l, ok := st.lots[kind][id]
		if ok && l.SiteID == siteID {
			out = st.withNames(l)
		}
		return nil
	})
	return out, err
}

func (r *memLots) GetByID(_ context.Context, kind entity.LotKind, siteID, id int64) (*entity.Lot, error) {
	return r.get(kind, siteID, id)
}

func (r *memLots) GetForUpdate(_ context.Context, kind entity.LotKind, siteID, id int64) (*entity.Lot, error) {
	return r.get(kind, siteID, id)
}

func (r *memLots) list(kind entity.LotKind, siteID int64, keep func(entity.Lot) bool) ([]*entity.Lot, error) {
	var out []*entity.Lot
	err := r.s.with(r.tx, func(st *memState) error {
		for _, l := range st.lots[kind] {
			if l.SiteID == siteID && keep(l) {
				out = append(out, st.withNames(l))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *memLots) List(_ context.Context, kind entity.LotKind, siteID int64) ([]*entity.Lot, error) {
	return r.list(kind, siteID, func(entity.Lot) bool { return true })
}

func (r *memLots) ListTerminatedOn(_ context.Context, kind entity.LotKind, siteID int64, day time.Time) ([]*entity.Lot, error) {
	return r.list(kind, siteID, func(l entity.Lot) bool {
		return l.TerminatedAt != nil && sameDay(*l.TerminatedAt, day)
	})
}

func (r *memLots) Update(_ context.Context, lot *entity.Lot) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("lots.Update", lot.ID); err != nil {
			return err
		}
		prev, ok := st.lots[lot.Kind][lot.ID]
		if !ok || prev.SiteID != lot.SiteID {
			return nil
		}
		lot.UpdatedAt = r.s.now()
		st.lots[lot.Kind][lot.ID] = *lot
		return nil
	})
}

func (r *memLots) MarkSwept(_ context.Context, kind entity.LotKind, siteID, id int64, day time.Time) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("lots.MarkSwept", id); err != nil {
			return err
		}
		l, ok := st.lots[kind][id]
		if !ok || l.SiteID != siteID {
			return nil
		}
		d := day
		l.SweptOn = &d
		st.lots[kind][id] = l
		return nil
	})
}

func (r *memLots) Delete(_ context.Context, kind entity.LotKind, siteID, id int64) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("lots.Delete", id); err != nil {
			return err
		}
		l, ok := st.lots[kind][id]
		if !ok || l.SiteID != siteID {
			return nil
		}
		delete(st.lots[kind], id)
		// ON DELETE SET NULL sobre origin_lot_id
		for rid, row := range st.stock {
			if row.Kind == kind && row.OriginLotID == id {
				row.OriginLotID = 0
				st.stock[rid] = row
			}
		}
		return nil
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ────────────────────────────────────────────────────────────────────────────
// Existencias
// ────────────────────────────────────────────────────────────────────────────

type memStock struct {
	s  *MemStore
	tx *memState
}

var _ repository.StockRepository = (*memStock)(nil)

func (r *memStock) Insert(_ context.Context, row *entity.StockRow) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("stock.Insert", row.OriginLotID); err != nil {
			return err
		}
		row.ID = st.id()
		row.CreatedAt = r.s.now()
		row.UpdatedAt = row.CreatedAt
		st.stock[row.ID] = *row
		return nil
	})
}

func (r *memStock) Update(_ context.Context, row *entity.StockRow) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("stock.Update", row.ID); err != nil {
			return err
		}
		if _, ok := st.stock[row.ID]; !ok {
			return nil
		}
		row.UpdatedAt = r.s.now()
		st.stock[row.ID] = *row
		return nil
	})
}

func (r *memStock) Delete(_ context.Context, siteID, id int64) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("stock.Delete", id); err != nil {
			return err
		}
		if row, ok := st.stock[id]; ok && row.SiteID == siteID {
			delete(st.stock, id)
		}
		return nil
	})
}

func (r *memStock) GetByOriginForUpdate(_ context.Context, kind entity.LotKind, siteID, lotID int64) (*entity.StockRow, error) {
	var out *entity.StockRow
	err := r.s.with(r.tx, func(st *memState) error {
		for _, row := range st.sortedStock() {
			if row.Kind == kind && row.SiteID == siteID && row.OriginLotID == lotID {
				row := row
				out = &row
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *memStock) LockByKey(_ context.Context, key entity.StockKey) ([]entity.StockRow, error) {
	var out []entity.StockRow
	err := r.s.with(r.tx, func(st *memState) error {
		for _, row := range st.sortedStock() {
			if row.Key() == key {
				out = append(out, row)
			}
		}
		return nil
	})
	return out, err
}

func (r *memStock) List(_ context.Context, siteID int64, kind entity.LotKind, name string) ([]entity.StockRow, error) {
	var out []entity.StockRow
	needle := strings.ToLower(name)
	err := r.s.with(r.tx, func(st *memState) error {
		for _, row := range st.sortedStock() {
			if row.SiteID != siteID || (kind != "" && row.Kind != kind) {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(row.ProductName), needle) {
				continue
			}
			row.VendorName = st.dims[vendorDimension(row.Kind)][row.VendorID].Name
			out = append(out, row)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out, err
}

func (st *memState) sortedStock() []entity.StockRow {
	rows := make([]entity.StockRow, 0, len(st.stock))
	for _, r := range st.stock {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// ────────────────────────────────────────────────────────────────────────────
// Dimensiones, sedes, auditoría
// ────────────────────────────────────────────────────────────────────────────

type memDims struct {
	s  *MemStore
	tx *memState
}

var _ repository.DimensionRepository = (*memDims)(nil)

func (r *memDims) Get(_ context.Context, kind entity.DimensionKind, siteID, id int64) (*entity.Dimension, error) {
	var out *entity.Dimension
	err := r.s.with(r.tx, func(st *memState) error {
		if d, ok := st.dims[kind][id]; ok && d.SiteID == siteID {
			out = &d
		}
		return nil
	})
	return out, err
}

func (r *memDims) FindByName(_ context.Context, kind entity.DimensionKind, siteID int64, name string) (*entity.Dimension, error) {
	var out *entity.Dimension
	err := r.s.with(r.tx, func(st *memState) error {
		for _, d := range st.dims[kind] {
			if d.SiteID == siteID && d.Name == name && (out == nil || d.ID < out.ID) {
				d := d
				out = &d
			}
		}
		return nil
	})
	return out, err
}

func (r *memDims) Create(_ context.Context, kind entity.DimensionKind, d *entity.Dimension) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("dimensions.Create", 0); err != nil {
			return err
		}
		d.ID = st.id()
		if st.dims[kind] == nil {
			st.dims[kind] = map[int64]entity.Dimension{}
		}
		st.dims[kind][d.ID] = *d
		return nil
	})
}

type memSites struct{ s *MemStore }

var _ repository.SiteRepository = (*memSites)(nil)

func (r *memSites) ListIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	_ = r.s.with(nil, func(st *memState) error {
		for id := range st.sites {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memAudit struct {
	s  *MemStore
	tx *memState
}

var _ repository.AuditRepository = (*memAudit)(nil)

func (r *memAudit) Record(_ context.Context, e *entity.AuditEntry) error {
	return r.s.with(r.tx, func(st *memState) error {
		if err := r.s.fail("audit.Record", e.RecordID); err != nil {
			return err
		}
		e.ID = st.id()
		e.CreatedAt = r.s.now()
		st.audit = append(st.audit, *e)
		return nil
	})
}

// ────────────────────────────────────────────────────────────────────────────
// Notificaciones y suscriptores
// ────────────────────────────────────────────────────────────────────────────

type memNotifications struct{ s *MemStore }

var _ repository.NotificationRepository = (*memNotifications)(nil)

func keyOf(n entity.Notification) notificationKey {
	return notificationKey{
		kind:      n.Kind,
		reagentID: n.ReagentLotID,
		supplyID:  n.SupplyLotID,
		eventDate: n.EventDate,
		message:   n.Message,
	}
}

func (r *memNotifications) Create(_ context.Context, n *entity.Notification) (bool, error) {
	created := false
	err := r.s.with(nil, func(st *memState) error {
		if err := r.s.fail("notifications.Create", n.ReagentLotID+n.SupplyLotID); err != nil {
			return err
		}
		k := keyOf(*n)
		for _, existing := range st.notifications {
			if keyOf(existing) == k {
				return nil
			}
		}
		n.ID = st.id()
		n.CreatedAt = r.s.now()
		st.notifications[n.ID] = *n
		created = true
		return nil
	})
	return created, err
}

func (st *memState) notificationsOf(siteID int64, newestFirst bool) []entity.Notification {
	var out []entity.Notification
	for _, n := range st.notifications {
		if n.SiteID == siteID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memNotifications) ListUnsent(_ context.Context, siteID int64) ([]entity.Notification, error) {
	var out []entity.Notification
	err := r.s.with(nil, func(st *memState) error {
		for _, n := range st.notificationsOf(siteID, false) {
			if !n.Sent {
				out = append(out, n)
			}
		}
		return nil
	})
	return out, err
}

func (r *memNotifications) ListUnread(_ context.Context, siteID int64) ([]entity.Notification, error) {
	var out []entity.Notification
	err := r.s.with(nil, func(st *memState) error {
		for _, n := range st.notificationsOf(siteID, true) {
			if !n.Read {
				out = append(out, n)
			}
		}
		return nil
	})
	return out, err
}

func (r *memNotifications) MarkSent(_ context.Context, siteID, id int64) error {
	return r.s.with(nil, func(st *memState) error {
		if err := r.s.fail("notifications.MarkSent", id); err != nil {
			return err
		}
		if n, ok := st.notifications[id]; ok && n.SiteID == siteID {
			n.Sent = true
			st.notifications[id] = n
		}
		return nil
	})
}

func (r *memNotifications) MarkRead(_ context.Context, siteID, id int64) (bool, error) {
	found := false
	err := r.s.with(nil, func(st *memState) error {
		if n, ok := st.notifications[id]; ok && n.SiteID == siteID {
			n.Read = true
			st.notifications[id] = n
			found = true
		}
		return nil
	})
	return found, err
}

type memSubscribers struct{ s *MemStore }

var _ repository.SubscriberRepository = (*memSubscribers)(nil)

func (r *memSubscribers) ListBySite(_ context.Context, siteID int64) ([]entity.Subscriber, error) {
	var out []entity.Subscriber
	err := r.s.with(nil, func(st *memState) error {
		for _, sub := range st.subscribers {
			if sub.SiteID == siteID {
				out = append(out, sub)
			}
		}
		return nil
	})
	return out, err
}

var _ inventory.TxRunner = (*MemStore)(nil)
