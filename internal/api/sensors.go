package api

import (
	"time"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/hal"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/protocol"
)

// Snapshot is one reading of every sensor family. It is the body of
// GET /api/sensors, the persisted sensors document and the telemetry payload.
type Snapshot struct {
	Temperature hal.Reading `json:"temperature"`
	Humidity    hal.Reading `json:"humidity"`
	Current     hal.Reading `json:"current"`
	Timestamp   int64       `json:"timestamp"`
}

// ReadSnapshot reads all sensor families. A family that fails to read is
// left nil and logged; the snapshot is still returned.
func ReadSnapshot(sensors hal.Sensors, now time.Time) Snapshot {
	snap := Snapshot{Timestamp: now.Unix()}
	for _, kind := range hal.SensorKinds {
		reading, err := sensors.Read(kind)
		if err != nil {
			logging.Warn("Sensor read failed", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		switch kind {
		case hal.Temperature:
			snap.Temperature = reading
		case hal.Humidity:
			snap.Humidity = reading
		case hal.Current:
			snap.Current = reading
		}
	}
	return snap
}

func (a *API) getSensors(req *protocol.Request) (*protocol.Response, error) {
	return protocol.JSON(200, ReadSnapshot(a.deps.Board.Sensors, a.deps.Now())), nil
}

func (a *API) getSensor(req *protocol.Request) (*protocol.Response, error) {
	kind, valid := hal.ParseSensorKind(req.Param("type"))
	if !valid {
		return protocol.Error(400, "Invalid sensor type"), nil
	}
	reading, err := a.deps.Board.Sensors.Read(kind)
	if err != nil {
		return nil, failed("read "+string(kind)+" sensor", err)
	}
	return protocol.JSON(200, reading), nil
}
