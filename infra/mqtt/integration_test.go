package mqtt

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/taxidispatch/core/model"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
	"github.com/kilianp07/taxidispatch/test/util"
)

// TestIntegration exchanges fares, bids and allocations through a real
// Mosquitto broker.
func TestIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Fatalf("start mosquitto: %v", err)
	}
	defer cleanup()

	in := &fakeInbound{}
	router := NewRouter("w1", nil)
	router.Bind(in)
	cli, err := NewPahoClient(Config{Broker: broker, ClientID: "dispatcher", QoS: map[string]byte{"inbound": 1, "allocation": 1}}, router)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cli.Disconnect()

	taxi := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("taxi-1"))
	if tok := taxi.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("taxi connect: %v", tok.Error())
	}
	defer taxi.Disconnect(100)

	allocated := make(chan coremqtt.Allocation, 1)
	tok := taxi.Subscribe("taxi/t1/allocation", 1, func(c paho.Client, m paho.Message) {
		var a coremqtt.Allocation
		if err := json.Unmarshal(m.Payload(), &a); err == nil {
			allocated <- a
			ack, _ := json.Marshal(coremqtt.Ack{MessageID: a.MessageID, Agent: a.Agent})
			c.Publish("taxi/acks", 1, false, ack)
		}
	})
	if tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	taxi.Publish("taxi/t1/state", 1, false, `{"number":1,"location":{"x":0,"y":0}}`).Wait()
	taxi.Publish("taxi/fares/bid", 1, false, `{"agent":"t1","origin":{"x":1,"y":1}}`).Wait()

	deadline := time.Now().Add(5 * time.Second)
	for {
		in.mu.Lock()
		done := len(in.calls) == 1 && len(in.agents) == 1
		in.mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("inbound messages not routed: %+v", in.calls)
		}
		time.Sleep(50 * time.Millisecond)
	}

	id, err := cli.SendAllocation("t1", model.Coord{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	select {
	case a := <-allocated:
		if a.MessageID != id || a.Origin != (model.Coord{X: 1, Y: 1}) {
			t.Fatalf("unexpected allocation %+v", a)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("allocation not delivered")
	}
	if ok, err := cli.WaitForAck(id, 5*time.Second); !ok {
		t.Fatalf("ack not received: %v", err)
	}
}
