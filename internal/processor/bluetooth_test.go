package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/target"
)

func newTestBluetooth() *Bluetooth {
	return NewBluetooth(browsingcontext.NewStorage(), target.NewManager(nil, nil, nil))
}

func TestBluetoothSimulatePreconnectedPeripheralThenRemove(t *testing.T) {
	bt := newTestBluetooth()

	body := json.RawMessage(`{"context":"ctx-1","address":"AA:BB","name":"Widget"}`)
	res, err := bt.simulatePreconnectedPeripheral(context.Background(), body, "")
	require.NoError(t, err)
	pr := res.(simulatePreconnectedPeripheralResult)
	require.NotEmpty(t, pr.Peripheral)

	removeBody, _ := json.Marshal(removeSimulatedPeripheralParams{Context: "ctx-1", Peripheral: pr.Peripheral})
	_, err = bt.removeSimulatedPeripheral(context.Background(), removeBody, "")
	require.NoError(t, err)

	_, err = bt.removeSimulatedPeripheral(context.Background(), removeBody, "")
	assert.Error(t, err, "removing an already-removed peripheral should fail")
}

func TestBluetoothDisableSimulationDropsAdapter(t *testing.T) {
	bt := newTestBluetooth()
	bt.adapterFor("ctx-1").enabled = true

	_, err := bt.disableSimulation(context.Background(), json.RawMessage(`{"context":"ctx-1"}`), "")
	require.NoError(t, err)

	bt.mu.Lock()
	_, ok := bt.adapters["ctx-1"]
	bt.mu.Unlock()
	assert.False(t, ok)
}
