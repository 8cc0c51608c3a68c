package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atiaxi/chromabot/internal/host"
	"github.com/atiaxi/chromabot/internal/model"
)

type mockRegionRepo struct {
	nextID  int64
	regions map[int64]*model.Region
}

func newMockRegionRepo() *mockRegionRepo {
	return &mockRegionRepo{regions: make(map[int64]*model.Region)}
}

func (m *mockRegionRepo) Create(_ context.Context, r *model.Region) error {
	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.regions[r.ID] = &cp
	return nil
}

func (m *mockRegionRepo) FindByID(_ context.Context, id int64) (*model.Region, error) {
	r, ok := m.regions[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRegionRepo) FindByName(_ context.Context, name string) (*model.Region, error) {
	name = strings.ToLower(name)
	for _, r := range m.regions {
		if r.Name == name || strings.ToLower(r.SRName) == name {
			cp := *r
			return &cp, nil
		}
		for _, a := range r.Aliases {
			if strings.ToLower(a) == name {
				cp := *r
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (m *mockRegionRepo) List(_ context.Context) ([]model.Region, error) {
	var out []model.Region
	for _, r := range m.regions {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRegionRepo) Update(_ context.Context, r *model.Region) error {
	stored, ok := m.regions[r.ID]
	if !ok {
		return fmt.Errorf("no region %d", r.ID)
	}
	borders, aliases := stored.Borders, stored.Aliases
	cp := *r
	cp.Borders, cp.Aliases = borders, aliases
	m.regions[r.ID] = &cp
	return nil
}

func (m *mockRegionRepo) AddBorder(_ context.Context, a, b int64) error {
	ra, rb := m.regions[a], m.regions[b]
	if ra == nil || rb == nil {
		return fmt.Errorf("no such border pair %d-%d", a, b)
	}
	if !containsID(ra.Borders, b) {
		ra.Borders = append(ra.Borders, b)
	}
	if !containsID(rb.Borders, a) {
		rb.Borders = append(rb.Borders, a)
	}
	return nil
}

func (m *mockRegionRepo) SetAliases(_ context.Context, id int64, aliases []string) error {
	r, ok := m.regions[id]
	if !ok {
		return fmt.Errorf("no region %d", id)
	}
	r.Aliases = aliases
	return nil
}

func (m *mockRegionRepo) CapitalFor(_ context.Context, team int) (*model.Region, error) {
	for _, r := range m.regions {
		if r.CapitalOf == team {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

type mockPlayerRepo struct {
	nextID  int64
	players map[int64]*model.Player
}

func newMockPlayerRepo() *mockPlayerRepo {
	return &mockPlayerRepo{players: make(map[int64]*model.Player)}
}

func (m *mockPlayerRepo) Create(_ context.Context, p *model.Player) error {
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.players[p.ID] = &cp
	return nil
}

func (m *mockPlayerRepo) FindByID(_ context.Context, id int64) (*model.Player, error) {
	p, ok := m.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlayerRepo) FindByName(_ context.Context, name string) (*model.Player, error) {
	for _, p := range m.players {
		if p.Name == strings.ToLower(name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPlayerRepo) Update(_ context.Context, p *model.Player) error {
	if _, ok := m.players[p.ID]; !ok {
		return fmt.Errorf("no player %d", p.ID)
	}
	cp := *p
	m.players[p.ID] = &cp
	return nil
}

func (m *mockPlayerRepo) ListInRegion(_ context.Context, regionID int64) ([]model.Player, error) {
	var out []model.Player
	for _, p := range m.players {
		if p.RegionID == regionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPlayerRepo) CountByTeam(_ context.Context) (map[int]int, error) {
	out := make(map[int]int)
	for _, p := range m.players {
		out[p.Team]++
	}
	return out, nil
}

type mockMarchRepo struct {
	nextID int64
	orders map[int64]*model.MarchingOrder
}

func newMockMarchRepo() *mockMarchRepo {
	return &mockMarchRepo{orders: make(map[int64]*model.MarchingOrder)}
}

func (m *mockMarchRepo) Create(_ context.Context, mo *model.MarchingOrder) error {
	m.nextID++
	mo.ID = m.nextID
	cp := *mo
	m.orders[mo.ID] = &cp
	return nil
}

func (m *mockMarchRepo) ListByPlayer(_ context.Context, playerID int64) ([]model.MarchingOrder, error) {
	var out []model.MarchingOrder
	for _, mo := range m.orders {
		if mo.PlayerID == playerID {
			out = append(out, *mo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivesAt.Before(out[j].ArrivesAt) })
	return out, nil
}

func (m *mockMarchRepo) ListDue(_ context.Context, now time.Time) ([]model.MarchingOrder, error) {
	var out []model.MarchingOrder
	for _, mo := range m.orders {
		if !mo.ArrivesAt.After(now) {
			out = append(out, *mo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivesAt.Before(out[j].ArrivesAt) })
	return out, nil
}

func (m *mockMarchRepo) Delete(_ context.Context, id int64) error {
	delete(m.orders, id)
	return nil
}

func (m *mockMarchRepo) DeleteByPlayer(_ context.Context, playerID int64) error {
	for id, mo := range m.orders {
		if mo.PlayerID == playerID {
			delete(m.orders, id)
		}
	}
	return nil
}

type mockBattleRepo struct {
	nextID  int64
	battles map[int64]*model.Battle
}

func newMockBattleRepo() *mockBattleRepo {
	return &mockBattleRepo{battles: make(map[int64]*model.Battle)}
}

func (m *mockBattleRepo) Create(_ context.Context, b *model.Battle) error {
	m.nextID++
	b.ID = m.nextID
	cp := *b
	m.battles[b.ID] = &cp
	return nil
}

func (m *mockBattleRepo) FindByID(_ context.Context, id int64) (*model.Battle, error) {
	b, ok := m.battles[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBattleRepo) FindBySubmission(_ context.Context, submissionID string) (*model.Battle, error) {
	for _, b := range m.battles {
		if b.SubmissionID == submissionID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockBattleRepo) FindByRegion(_ context.Context, regionID int64) (*model.Battle, error) {
	for _, b := range m.battles {
		if b.RegionID == regionID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockBattleRepo) List(_ context.Context) ([]model.Battle, error) {
	var out []model.Battle
	for _, b := range m.battles {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockBattleRepo) Update(_ context.Context, b *model.Battle) error {
	if _, ok := m.battles[b.ID]; !ok {
		return fmt.Errorf("no battle %d", b.ID)
	}
	cp := *b
	m.battles[b.ID] = &cp
	return nil
}

func (m *mockBattleRepo) Delete(_ context.Context, id int64) error {
	delete(m.battles, id)
	return nil
}

type mockSkirmishRepo struct {
	nextID  int64
	actions map[int64]*model.SkirmishAction
}

func newMockSkirmishRepo() *mockSkirmishRepo {
	return &mockSkirmishRepo{actions: make(map[int64]*model.SkirmishAction)}
}

func (m *mockSkirmishRepo) Create(_ context.Context, s *model.SkirmishAction) error {
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.actions[s.ID] = &cp
	return nil
}

func (m *mockSkirmishRepo) FindByID(_ context.Context, id int64) (*model.SkirmishAction, error) {
	s, ok := m.actions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSkirmishRepo) FindByComment(_ context.Context, commentID string) (*model.SkirmishAction, error) {
	for _, s := range m.actions {
		if s.CommentID == commentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockSkirmishRepo) ListByBattle(_ context.Context, battleID int64) ([]model.SkirmishAction, error) {
	var out []model.SkirmishAction
	for _, s := range m.actions {
		if s.BattleID == battleID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSkirmishRepo) RootFor(_ context.Context, battleID, playerID int64) (*model.SkirmishAction, error) {
	for _, s := range m.actions {
		if s.BattleID == battleID && s.PlayerID == playerID && s.ParentID == 0 {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockSkirmishRepo) ChildFor(_ context.Context, parentID, playerID int64) (*model.SkirmishAction, error) {
	for _, s := range m.actions {
		if s.ParentID == parentID && s.PlayerID == playerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockSkirmishRepo) CountActions(_ context.Context, battleID, playerID int64) (int, error) {
	n := 0
	for _, s := range m.actions {
		if s.BattleID == battleID && s.PlayerID == playerID {
			n++
		}
	}
	return n, nil
}

func (m *mockSkirmishRepo) Update(_ context.Context, s *model.SkirmishAction) error {
	if _, ok := m.actions[s.ID]; !ok {
		return fmt.Errorf("no skirmish %d", s.ID)
	}
	cp := *s
	m.actions[s.ID] = &cp
	return nil
}

func (m *mockSkirmishRepo) Delete(_ context.Context, id int64) error {
	for sid, s := range m.actions {
		if sid == id || s.ParentID == id {
			delete(m.actions, sid)
		}
	}
	return nil
}

func (m *mockSkirmishRepo) DeleteByBattle(_ context.Context, battleID int64) error {
	for id, s := range m.actions {
		if s.BattleID == battleID {
			delete(m.actions, id)
		}
	}
	return nil
}

type mockBuffRepo struct {
	nextID int64
	buffs  map[int64]*model.Buff
	// skirmishBattle maps skirmish ids to battle ids so
	// DeleteBySkirmishBattle can find its targets without a join.
	skirmishBattle map[int64]int64
}

func newMockBuffRepo() *mockBuffRepo {
	return &mockBuffRepo{buffs: make(map[int64]*model.Buff),
		skirmishBattle: make(map[int64]int64)}
}

func (m *mockBuffRepo) Attach(_ context.Context, b *model.Buff) error {
	for _, existing := range m.buffs {
		if existing.Internal == b.Internal &&
			existing.RegionID == b.RegionID && existing.SkirmishID == b.SkirmishID {
			return nil
		}
	}
	m.nextID++
	b.ID = m.nextID
	cp := *b
	m.buffs[b.ID] = &cp
	return nil
}

func (m *mockBuffRepo) ListByRegion(_ context.Context, regionID int64) ([]model.Buff, error) {
	var out []model.Buff
	for _, b := range m.buffs {
		if b.RegionID == regionID && regionID != 0 {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockBuffRepo) ListBySkirmish(_ context.Context, skirmishID int64) ([]model.Buff, error) {
	var out []model.Buff
	for _, b := range m.buffs {
		if b.SkirmishID == skirmishID && skirmishID != 0 {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockBuffRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	n := 0
	for id, b := range m.buffs {
		if !b.ExpiresAt.IsZero() && !b.ExpiresAt.After(now) {
			delete(m.buffs, id)
			n++
		}
	}
	return n, nil
}

func (m *mockBuffRepo) DeleteBySkirmishBattle(_ context.Context, battleID int64) error {
	for id, b := range m.buffs {
		if b.SkirmishID != 0 && m.skirmishBattle[b.SkirmishID] == battleID {
			delete(m.buffs, id)
		}
	}
	return nil
}

type mockCodewordRepo struct {
	nextID int64
	words  map[int64]*model.Codeword
}

func newMockCodewordRepo() *mockCodewordRepo {
	return &mockCodewordRepo{words: make(map[int64]*model.Codeword)}
}

func (m *mockCodewordRepo) Set(_ context.Context, c *model.Codeword) error {
	for _, w := range m.words {
		if w.PlayerID == c.PlayerID && w.Code == c.Code {
			w.Word = c.Word
			return nil
		}
	}
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.words[c.ID] = &cp
	return nil
}

func (m *mockCodewordRepo) Lookup(_ context.Context, playerID int64, code string) (*model.Codeword, error) {
	for _, w := range m.words {
		if w.PlayerID == playerID && w.Code == code {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockCodewordRepo) ListByPlayer(_ context.Context, playerID int64) ([]model.Codeword, error) {
	var out []model.Codeword
	for _, w := range m.words {
		if w.PlayerID == playerID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockCodewordRepo) Remove(_ context.Context, playerID int64, code string) error {
	for id, w := range m.words {
		if w.PlayerID == playerID && w.Code == code {
			delete(m.words, id)
		}
	}
	return nil
}

func (m *mockCodewordRepo) RemoveAll(_ context.Context, playerID int64) error {
	for id, w := range m.words {
		if w.PlayerID == playerID {
			delete(m.words, id)
		}
	}
	return nil
}

type mockProcessedRepo struct {
	seen map[string]bool
}

func newMockProcessedRepo() *mockProcessedRepo {
	return &mockProcessedRepo{seen: make(map[string]bool)}
}

func (m *mockProcessedRepo) Mark(_ context.Context, battleID int64, messageID string) error {
	m.seen[fmt.Sprintf("%d/%s", battleID, messageID)] = true
	return nil
}

func (m *mockProcessedRepo) Seen(_ context.Context, battleID int64, messageID string) (bool, error) {
	return m.seen[fmt.Sprintf("%d/%s", battleID, messageID)], nil
}

type mockCache struct {
	mu      sync.Mutex
	reports map[string]string
}

func newMockCache() *mockCache {
	return &mockCache{reports: make(map[string]string)}
}

func (m *mockCache) GetReport(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[key], nil
}

func (m *mockCache) SetReport(_ context.Context, key, body string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key] = body
	return nil
}

func (m *mockCache) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reports, key)
	return nil
}

// mockHost records outbound actions and replays scripted inbound ones.
type mockHost struct {
	nextID   int64
	name     string
	inbox    []host.Event
	recruits []host.Event
	threads  map[string][]host.Comment
	comments map[string]*host.Comment

	posts   []string // "board|title|body"
	replies []string // "parent|body"
	edits   []string // "id|body"
	pms     []string // "user|subject|body"

	failNextReply bool
}

func newMockHost() *mockHost {
	return &mockHost{
		name:     "chromabot",
		threads:  make(map[string][]host.Comment),
		comments: make(map[string]*host.Comment),
	}
}

func (m *mockHost) ObserveRecruitmentPosts(_ context.Context) ([]host.Event, error) {
	return m.recruits, nil
}

func (m *mockHost) ObserveInbox(_ context.Context) ([]host.Event, error) {
	return m.inbox, nil
}

func (m *mockHost) FetchBattleThread(_ context.Context, submissionID string) ([]host.Comment, error) {
	return m.threads[submissionID], nil
}

func (m *mockHost) FetchComment(_ context.Context, id string) (*host.Comment, error) {
	return m.comments[id], nil
}

func (m *mockHost) SubmitPost(_ context.Context, board, title, body string) (string, error) {
	m.nextID++
	m.posts = append(m.posts, board+"|"+title+"|"+body)
	return fmt.Sprintf("post-%d", m.nextID), nil
}

func (m *mockHost) EditPost(_ context.Context, id, body string) error {
	m.edits = append(m.edits, id+"|"+body)
	return nil
}

func (m *mockHost) Reply(_ context.Context, parentID, body string) (string, error) {
	if m.failNextReply {
		m.failNextReply = false
		return "", fmt.Errorf("reply rejected")
	}
	m.nextID++
	m.replies = append(m.replies, parentID+"|"+body)
	return fmt.Sprintf("reply-%d", m.nextID), nil
}

func (m *mockHost) SendPrivateMessage(_ context.Context, user, subject, body string) error {
	m.pms = append(m.pms, user+"|"+subject+"|"+body)
	return nil
}

func (m *mockHost) MarkRead(_ context.Context, _ string) error { return nil }

func (m *mockHost) BotName() string { return m.name }

// lastReply returns the body of the most recent comment reply.
func (m *mockHost) lastReply() string {
	if len(m.replies) == 0 {
		return ""
	}
	last := m.replies[len(m.replies)-1]
	return last[strings.Index(last, "|")+1:]
}

// lastPM returns the body of the most recent private message.
func (m *mockHost) lastPM() string {
	if len(m.pms) == 0 {
		return ""
	}
	parts := strings.SplitN(m.pms[len(m.pms)-1], "|", 3)
	return parts[2]
}
