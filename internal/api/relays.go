package api

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/hal"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/protocol"
)

// Relay actions accepted by POST /api/relays/:id.
const (
	ActionOn     = "on"
	ActionOff    = "off"
	ActionToggle = "toggle"
)

type relayStatus struct {
	RelayID int   `json:"relay_id"`
	State   bool  `json:"state"`
	Uptime  int64 `json:"uptime"`
}

type relayActionRequest struct {
	Action string `json:"action"`
}

type relayActionResponse struct {
	RelayID int    `json:"relay_id"`
	State   bool   `json:"state"`
	Action  string `json:"action"`
}

func (a *API) relayID(req *protocol.Request) (int, bool) {
	id, err := strconv.Atoi(req.Param("id"))
	if err != nil || id < 0 || id >= a.deps.Board.Relays.Count() {
		return 0, false
	}
	return id, true
}

// relayUptime is how long a relay has been on, in whole seconds; 0 when off.
func (a *API) relayUptime(id int, on bool) int64 {
	since, tracked := a.relayOnSince[id]
	if !on || !tracked {
		return 0
	}
	return int64(a.deps.Now().Sub(since).Seconds())
}

func (a *API) getRelays(req *protocol.Request) (*protocol.Response, error) {
	relays := a.deps.Board.Relays
	states := make(map[string]bool, relays.Count())
	for id := 0; id < relays.Count(); id++ {
		on, err := relays.State(id)
		if err != nil {
			return nil, failed("read relays", err)
		}
		states[fmt.Sprintf("relay%d", id+1)] = on
	}
	return protocol.JSON(200, states), nil
}

func (a *API) getRelay(req *protocol.Request) (*protocol.Response, error) {
	id, valid := a.relayID(req)
	if !valid {
		return protocol.Error(400, "Invalid relay ID"), nil
	}
	on, err := a.deps.Board.Relays.State(id)
	if err != nil {
		return nil, failed("read relay", err)
	}
	return protocol.JSON(200, relayStatus{RelayID: id, State: on, Uptime: a.relayUptime(id, on)}), nil
}

func (a *API) setRelay(req *protocol.Request) (*protocol.Response, error) {
	id, valid := a.relayID(req)
	if !valid {
		return protocol.Error(400, "Invalid relay ID"), nil
	}

	body := relayActionRequest{Action: ActionToggle}
	if len(req.Body) > 0 {
		if err := req.DecodeJSON(&body); err != nil {
			return protocol.Error(400, "Invalid JSON body"), nil
		}
		if body.Action == "" {
			body.Action = ActionToggle
		}
	}

	relays := a.deps.Board.Relays
	current, err := relays.State(id)
	if err != nil {
		return nil, failed("read relay", err)
	}

	var want bool
	switch body.Action {
	case ActionOn:
		want = true
	case ActionOff:
		want = false
	case ActionToggle:
		want = !current
	default:
		return protocol.Error(400, "Invalid action"), nil
	}

	if err := relays.Set(id, want); err != nil {
		if errors.Is(err, hal.ErrInvalidRelay) {
			return protocol.Error(400, "Invalid relay ID"), nil
		}
		return nil, failed("switch relay", err)
	}
	if want && !current {
		a.relayOnSince[id] = a.deps.Now()
	} else if !want {
		delete(a.relayOnSince, id)
	}

	state, err := relays.State(id)
	if err != nil {
		return nil, failed("read relay", err)
	}
	logging.Info("Relay switched",
		zap.Int("relay_id", id),
		zap.String("action", body.Action),
		zap.Bool("state", state),
	)
	return protocol.JSON(200, relayActionResponse{RelayID: id, State: state, Action: body.Action}), nil
}
