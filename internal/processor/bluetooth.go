package processor

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
	"github.com/chromedp/bidimapper/internal/target"
)

// simulatedAdapter is the emulated Bluetooth central for one browsing
// context: a flat device list with no GATT services, matching the depth the
// module is specified to (no real scanning/pairing emulation).
type simulatedAdapter struct {
	enabled bool
	devices map[string]simulatedDevice
}

type simulatedDevice struct {
	Address string
	Name    string
}

// Bluetooth implements the "bluetooth" module: simulateAdapter,
// disableSimulation, simulatePreconnectedPeripheral,
// removeSimulatedPeripheral. simulateAdvertisement is not registered.
type Bluetooth struct {
	contexts *browsingcontext.Storage
	targets  *target.Manager

	mu       sync.Mutex
	adapters map[string]*simulatedAdapter // browsing context id -> adapter
}

// NewBluetooth constructs the bluetooth Processor.
func NewBluetooth(contexts *browsingcontext.Storage, targets *target.Manager) *Bluetooth {
	return &Bluetooth{contexts: contexts, targets: targets, adapters: make(map[string]*simulatedAdapter)}
}

// Register installs this module's handlers on cp.
func (bt *Bluetooth) Register(cp *command.Processor) {
	cp.Register("bluetooth.simulateAdapter", bt.simulateAdapter)
	cp.Register("bluetooth.disableSimulation", bt.disableSimulation)
	cp.Register("bluetooth.simulatePreconnectedPeripheral", bt.simulatePreconnectedPeripheral)
	cp.Register("bluetooth.removeSimulatedPeripheral", bt.removeSimulatedPeripheral)
}

func (bt *Bluetooth) adapterFor(contextID string) *simulatedAdapter {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	a, ok := bt.adapters[contextID]
	if !ok {
		a = &simulatedAdapter{devices: make(map[string]simulatedDevice)}
		bt.adapters[contextID] = a
	}
	return a
}

func (bt *Bluetooth) targetFor(contextID string) (*target.Target, error) {
	bc, ok := bt.contexts.Get(contextID)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", contextID)
	}
	t, ok := bt.targets.Get(bc.CurrentTargetID())
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "context %q has no live target", contextID)
	}
	return t, nil
}

type simulateAdapterParams struct {
	Context string `json:"context"`
	State   string `json:"state"` // "absent" | "powered-off" | "powered-on"
}

func (bt *Bluetooth) simulateAdapter(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p simulateAdapterParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "bluetooth.simulateAdapter: %v", err)
	}
	t, err := bt.targetFor(p.Context)
	if err != nil {
		return nil, err
	}
	if err := t.Client.Call(ctx, "BluetoothEmulation.setSimulatedCentralState", &cdpwire.SetSimulatedCentralStateParams{State: p.State}, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "bluetooth.simulateAdapter")
	}
	a := bt.adapterFor(p.Context)
	bt.mu.Lock()
	a.enabled = p.State == "powered-on"
	bt.mu.Unlock()
	return struct{}{}, nil
}

type disableSimulationParams struct {
	Context string `json:"context"`
}

func (bt *Bluetooth) disableSimulation(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p disableSimulationParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "bluetooth.disableSimulation: %v", err)
	}
	bt.mu.Lock()
	delete(bt.adapters, p.Context)
	bt.mu.Unlock()
	return struct{}{}, nil
}

type simulatePreconnectedPeripheralParams struct {
	Context string `json:"context"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

type simulatePreconnectedPeripheralResult struct {
	Peripheral string `json:"peripheral"`
}

func (bt *Bluetooth) simulatePreconnectedPeripheral(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p simulatePreconnectedPeripheralParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "bluetooth.simulatePreconnectedPeripheral: %v", err)
	}
	a := bt.adapterFor(p.Context)
	id := uuid.NewString()
	bt.mu.Lock()
	a.devices[id] = simulatedDevice{Address: p.Address, Name: p.Name}
	bt.mu.Unlock()
	return simulatePreconnectedPeripheralResult{Peripheral: id}, nil
}

type removeSimulatedPeripheralParams struct {
	Context    string `json:"context"`
	Peripheral string `json:"peripheral"`
}

func (bt *Bluetooth) removeSimulatedPeripheral(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p removeSimulatedPeripheralParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "bluetooth.removeSimulatedPeripheral: %v", err)
	}
	a := bt.adapterFor(p.Context)
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if _, ok := a.devices[p.Peripheral]; !ok {
		return nil, bidierr.New(bidierr.UnknownError, "no such peripheral %q", p.Peripheral)
	}
	delete(a.devices, p.Peripheral)
	return struct{}{}, nil
}
