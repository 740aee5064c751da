package backends

import (
	"testing"

	"github.com/callflow-systems/callflow-stack/common/messaging/amqp"
	"github.com/callflow-systems/callflow-stack/common/messaging/memory"
	"github.com/callflow-systems/callflow-stack/common/messaging/nats"
)

func TestNew_BackendSelection(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"memory", "memory"},
		{"", "memory"},
		{"amqp", "amqp"},
		{"rabbitmq", "amqp"},
		{"nats", "nats"},
	}

	for _, tt := range tests {
		t.Run("backend_"+tt.backend, func(t *testing.T) {
			client, err := New(Config{Backend: tt.backend}, nil)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}

			switch tt.want {
			case "memory":
				if _, ok := client.(*memory.Bus); !ok {
					t.Errorf("expected *memory.Bus, got %T", client)
				}
			case "amqp":
				if _, ok := client.(*amqp.Bus); !ok {
					t.Errorf("expected *amqp.Bus, got %T", client)
				}
			case "nats":
				if _, ok := client.(*nats.Client); !ok {
					t.Errorf("expected *nats.Client, got %T", client)
				}
			}
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New(Config{Backend: "kafka"}, nil); err == nil {
		t.Error("expected error for unsupported backend")
	}
}
