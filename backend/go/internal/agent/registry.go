package agent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// Registration 是 Agent 注册时上报的信息。
type Registration struct {
	ID            string
	Name          string
	Capabilities  []string
	Understanding *float64
	Alignment     *float64
}

// StatusUpdate 是一次状态上报。空的 Status 表示保持当前状态，nil 字段不做修改。
type StatusUpdate struct {
	Status        models.AgentStatus
	CurrentTask   *string
	Understanding *float64
	Alignment     *float64
}

// Observer 在 Agent 快照发生变化后被调用。
// 回调在锁外同步执行，实现方不能阻塞。
type Observer interface {
	OnAgentChanged(agent models.Agent)
}

// ObserverFunc 让普通函数满足 Observer 接口。
type ObserverFunc func(agent models.Agent)

// OnAgentChanged 调用 f(agent)。
func (f ObserverFunc) OnAgentChanged(agent models.Agent) { f(agent) }

// Registry 是在线状态注册表，由协调服务持有。
// 所有读写都经过互斥锁，对外只返回副本，评估器不会读到写了一半的记录。
type Registry struct {
	mu        sync.RWMutex
	agents    map[string]*models.Agent
	observers []Observer
	now       func() time.Time
}

// NewRegistry 创建一个空的注册表。
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]*models.Agent),
		now:    time.Now,
	}
}

// SetClock 替换时间来源，仅用于测试。
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// AddObserver 注册一个变化观察者，例如 Redis 镜像。
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Register 注册或重新注册一个 Agent。
// 如果该 ID 仍以 active/standby 状态绑定在另一个连接上，返回 ErrDuplicateAgent；
// 否则覆盖全部可变字段，状态置为 active，并重置 last-seen。
func (r *Registry) Register(reg Registration, connID string) (models.Agent, error) {
	if reg.ID == "" {
		return models.Agent{}, fmt.Errorf("%w: agent id is required", models.ErrInvalidArgument)
	}

	r.mu.Lock()
	now := r.now()
	existing, ok := r.agents[reg.ID]
	if ok && existing.Status != models.AgentStatusOffline &&
		existing.ConnectionID != "" && existing.ConnectionID != connID {
		r.mu.Unlock()
		return models.Agent{}, fmt.Errorf("%w: %s", models.ErrDuplicateAgent, reg.ID)
	}

	name := reg.Name
	if name == "" {
		name = reg.ID
	}
	a := &models.Agent{
		ID:            reg.ID,
		Name:          name,
		Capabilities:  append([]string(nil), reg.Capabilities...),
		Status:        models.AgentStatusActive,
		LastSeen:      now,
		Understanding: copyFloat(reg.Understanding),
		Alignment:     copyFloat(reg.Alignment),
		RegisteredAt:  now,
		ConnectionID:  connID,
	}
	if ok && existing.LastSeen.After(now) {
		a.LastSeen = existing.LastSeen
	}
	r.agents[reg.ID] = a
	snap, observers := a.Clone(), r.observers
	r.mu.Unlock()

	notify(observers, snap)
	return snap, nil
}

// UpdateStatus 应用一次状态上报。无论状态是否变化，last-seen 都会更新。
func (r *Registry) UpdateStatus(id string, upd StatusUpdate) (models.Agent, error) {
	if upd.Status != "" && !upd.Status.Valid() {
		return models.Agent{}, fmt.Errorf("%w: %q", models.ErrInvalidStatus, upd.Status)
	}

	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return models.Agent{}, fmt.Errorf("%w: %s", models.ErrUnknownAgent, id)
	}
	if upd.Status != "" {
		a.Status = upd.Status
	}
	if upd.CurrentTask != nil {
		a.CurrentTask = *upd.CurrentTask
	}
	if upd.Understanding != nil {
		a.Understanding = copyFloat(upd.Understanding)
	}
	if upd.Alignment != nil {
		a.Alignment = copyFloat(upd.Alignment)
	}
	r.touchLocked(a)
	snap, observers := a.Clone(), r.observers
	r.mu.Unlock()

	notify(observers, snap)
	return snap, nil
}

// Touch 记录一次心跳。被超时清理标记为 offline 但连接仍在的 Agent 会恢复为 active。
func (r *Registry) Touch(id string) (models.Agent, error) {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return models.Agent{}, fmt.Errorf("%w: %s", models.ErrUnknownAgent, id)
	}
	revived := a.Status == models.AgentStatusOffline && a.ConnectionID != ""
	if revived {
		a.Status = models.AgentStatusActive
	}
	r.touchLocked(a)
	snap, observers := a.Clone(), r.observers
	r.mu.Unlock()

	if revived {
		notify(observers, snap)
	}
	return snap, nil
}

// MarkDisconnected 把绑定在 connID 上的 Agent 标记为 offline，并返回它们的快照。
func (r *Registry) MarkDisconnected(connID string) []models.Agent {
	if connID == "" {
		return nil
	}
	r.mu.Lock()
	var changed []models.Agent
	for _, a := range r.agents {
		if a.ConnectionID != connID {
			continue
		}
		a.Status = models.AgentStatusOffline
		a.ConnectionID = ""
		r.touchLocked(a)
		changed = append(changed, a.Clone())
	}
	observers := r.observers
	r.mu.Unlock()

	sortByID(changed)
	for _, a := range changed {
		notify(observers, a)
	}
	return changed
}

// ExpireStale 把超过 timeout 没有任何上报的在线 Agent 标记为 offline。
func (r *Registry) ExpireStale(timeout time.Duration) []models.Agent {
	r.mu.Lock()
	now := r.now()
	var changed []models.Agent
	for _, a := range r.agents {
		if a.Status == models.AgentStatusOffline || now.Sub(a.LastSeen) <= timeout {
			continue
		}
		a.Status = models.AgentStatusOffline
		changed = append(changed, a.Clone())
	}
	observers := r.observers
	r.mu.Unlock()

	sortByID(changed)
	for _, a := range changed {
		notify(observers, a)
	}
	return changed
}

// ListActive 返回状态为 active 且 last-seen 在 within 之内的 Agent，按 ID 排序。
func (r *Registry) ListActive(within time.Duration) []models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	var out []models.Agent
	for _, a := range r.agents {
		if a.Status == models.AgentStatusActive && now.Sub(a.LastSeen) <= within {
			out = append(out, a.Clone())
		}
	}
	sortByID(out)
	return out
}

// List 返回全部 Agent，按 ID 排序。
func (r *Registry) List() []models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.Clone())
	}
	sortByID(out)
	return out
}

// Get 返回单个 Agent 的快照。
func (r *Registry) Get(id string) (models.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return models.Agent{}, false
	}
	return a.Clone(), true
}

// ActiveCount 返回状态为 active 的 Agent 数量。
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.agents {
		if a.Status == models.AgentStatusActive {
			n++
		}
	}
	return n
}

// SetCurrentTask 设置 Agent 当前的任务描述，并返回修改后的快照。
func (r *Registry) SetCurrentTask(id, task string) (models.Agent, error) {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return models.Agent{}, fmt.Errorf("%w: %s", models.ErrUnknownAgent, id)
	}
	a.CurrentTask = task
	snap, observers := a.Clone(), r.observers
	r.mu.Unlock()

	notify(observers, snap)
	return snap, nil
}

// ClearCurrentTask 仅当当前任务仍是 task 时清空它，避免覆盖之后分配的新任务。
// 第二个返回值表示是否真的清空了。
func (r *Registry) ClearCurrentTask(id, task string) (models.Agent, bool) {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok || a.CurrentTask != task {
		r.mu.Unlock()
		return models.Agent{}, false
	}
	a.CurrentTask = ""
	snap, observers := a.Clone(), r.observers
	r.mu.Unlock()

	notify(observers, snap)
	return snap, true
}

// Restore 用持久化的快照重建注册表。已存在的条目保持不变，恢复出的 Agent 一律为 offline。
func (r *Registry) Restore(agents []models.Agent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range agents {
		if a.ID == "" {
			continue
		}
		if _, ok := r.agents[a.ID]; ok {
			continue
		}
		c := a.Clone()
		c.Status = models.AgentStatusOffline
		c.ConnectionID = ""
		r.agents[c.ID] = &c
		n++
	}
	return n
}

// touchLocked 更新 last-seen，保证单调不减。调用方必须持有写锁。
func (r *Registry) touchLocked(a *models.Agent) {
	if now := r.now(); now.After(a.LastSeen) {
		a.LastSeen = now
	}
}

func notify(observers []Observer, a models.Agent) {
	for _, o := range observers {
		o.OnAgentChanged(a)
	}
}

func sortByID(agents []models.Agent) {
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
