// Package script exposes the hub bus to embedded Lua automation scripts. A
// script subscribes with the same structural filters native subscribers use;
// the engine marshals matched messages across the Go/Lua boundary without
// weakening the bus isolation guarantees: a failing script handler is logged
// and contained exactly like a failing native callback.
package script

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/trickstertwo/xhab"
	"github.com/trickstertwo/xlog"
)

// BusAPI is the slice of the bus the engine binds into Lua.
type BusAPI interface {
	Publish(msg xhab.Message) error
	Subscribe(uid string, filter xhab.Message, cb xhab.Callback) (string, error)
	Unsubscribe(uid string) error
	GetHistory() []xhab.HistoryEntry
}

// delivery is one matched message waiting to cross into Lua.
type delivery struct {
	uid string
	msg xhab.Message
}

// Engine owns one Lua state and the bindings published under the global
// "hub" table: hub.publish, hub.subscribe, hub.unsubscribe, hub.history.
//
// An LState is not safe for concurrent use, so bus callbacks never touch it
// directly: they enqueue onto a bounded delivery queue drained by Run, which
// invokes the Lua handler under the engine mutex. Script loading takes the
// same mutex, so all state access is serialized.
type Engine struct {
	bus    BusAPI
	logger *xlog.Logger

	mu sync.Mutex // guards the LState
	L  *lua.LState

	deliveries chan delivery

	subMu    sync.Mutex
	handlers map[string]*lua.LFunction
}

const defaultDeliveryBuffer = 256

// NewEngine creates an engine bound to bus. Close releases the Lua state.
func NewEngine(bus BusAPI, logger *xlog.Logger) *Engine {
	if logger == nil {
		logger = xlog.Default()
	}
	e := &Engine{
		bus:        bus,
		logger:     logger,
		L:          lua.NewState(),
		deliveries: make(chan delivery, defaultDeliveryBuffer),
		handlers:   make(map[string]*lua.LFunction),
	}
	e.register()
	return e
}

// register installs the hub module into the Lua state.
func (e *Engine) register() {
	mod := e.L.NewTable()
	e.L.SetField(mod, "publish", e.L.NewFunction(e.luaPublish))
	e.L.SetField(mod, "subscribe", e.L.NewFunction(e.luaSubscribe))
	e.L.SetField(mod, "unsubscribe", e.L.NewFunction(e.luaUnsubscribe))
	e.L.SetField(mod, "history", e.L.NewFunction(e.luaHistory))
	e.L.SetGlobal("hub", mod)
}

// Load executes a script source, typically the registration phase that sets
// up subscriptions.
func (e *Engine) Load(source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.L.DoString(source)
}

// Run drains the delivery queue until ctx is canceled, invoking Lua handlers
// for matched messages. Handler errors are logged with the owning uid and do
// not stop the engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-e.deliveries:
			e.deliver(d)
		}
	}
}

func (e *Engine) deliver(d delivery) {
	e.subMu.Lock()
	fn := e.handlers[d.uid]
	e.subMu.Unlock()
	if fn == nil {
		// Unsubscribed between fan-out and delivery.
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.L.Push(fn)
	e.L.Push(toLuaValue(e.L, d.msg))
	if err := e.L.PCall(1, 0, nil); err != nil {
		e.logger.Warn().
			Str("uid", d.uid).
			Str("event", d.msg.Type()).
			Err(err).
			Msg("script: handler failed")
	}
}

// Close unsubscribes every script handler and releases the Lua state.
func (e *Engine) Close() {
	e.subMu.Lock()
	uids := make([]string, 0, len(e.handlers))
	for uid := range e.handlers {
		uids = append(uids, uid)
	}
	e.handlers = make(map[string]*lua.LFunction)
	e.subMu.Unlock()

	for _, uid := range uids {
		_ = e.bus.Unsubscribe(uid)
	}

	e.mu.Lock()
	e.L.Close()
	e.mu.Unlock()
}

// hub.publish(table)
func (e *Engine) luaPublish(L *lua.LState) int {
	t := L.CheckTable(1)
	msg, ok := tableToMessage(t)
	if !ok {
		L.ArgError(1, "message must be a table with string keys")
		return 0
	}
	if err := e.bus.Publish(msg); err != nil {
		L.RaiseError("publish: %s", err.Error())
		return 0
	}
	return 0
}

// hub.subscribe(filter, fn) -> uid
func (e *Engine) luaSubscribe(L *lua.LState) int {
	t := L.CheckTable(1)
	fn := L.CheckFunction(2)

	filter, ok := tableToMessage(t)
	if !ok {
		L.ArgError(1, "filter must be a table with string keys")
		return 0
	}

	// The uid is generated here rather than by the bus so the native
	// callback can carry it before Subscribe returns. Holding the function
	// in the handler map also pins it against GC.
	uid := uuid.NewString()
	e.subMu.Lock()
	e.handlers[uid] = fn
	e.subMu.Unlock()

	if _, err := e.bus.Subscribe(uid, filter, e.callback(uid)); err != nil {
		e.subMu.Lock()
		delete(e.handlers, uid)
		e.subMu.Unlock()
		L.RaiseError("subscribe: %s", err.Error())
		return 0
	}

	L.Push(lua.LString(uid))
	return 1
}

// callback builds the native-side callback forwarding a matched message to
// the delivery queue. It never blocks the bus callback pool: when scripts
// fall behind, the message is dropped and logged, keeping the best-effort
// contract.
func (e *Engine) callback(uid string) xhab.Callback {
	return func(msg xhab.Message) {
		select {
		case e.deliveries <- delivery{uid: uid, msg: msg}:
		default:
			e.logger.Warn().
				Str("uid", uid).
				Str("event", msg.Type()).
				Msg("script: delivery queue full, dropping message")
		}
	}
}

// hub.unsubscribe(uid)
func (e *Engine) luaUnsubscribe(L *lua.LState) int {
	uid := L.CheckString(1)

	e.subMu.Lock()
	delete(e.handlers, uid)
	e.subMu.Unlock()

	if err := e.bus.Unsubscribe(uid); err != nil {
		L.RaiseError("unsubscribe: %s", err.Error())
	}
	return 0
}

// hub.history() -> array of {message=..., timestamp=...}
func (e *Engine) luaHistory(L *lua.LState) int {
	entries := e.bus.GetHistory()
	out := L.NewTable()
	for i, entry := range entries {
		et := L.NewTable()
		et.RawSetString("message", toLuaValue(L, entry.Message))
		et.RawSetString("timestamp", lua.LNumber(entry.Timestamp.UnixNano())/1e9)
		out.RawSetInt(i+1, et)
	}
	L.Push(out)
	return 1
}
