package valkeytest

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/valkey-io/valkey-go"

	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"
	slogctx "github.com/veqryn/slog-context"
)

// Seeded slots, see Start.
const (
	Prefix            = "session-client"
	SeededProfile     = "seeded"
	SeededAccessToken = "seeded-token"
	SeededUser        = `{"id":"1","name":"A","email":"a@b.com"}`
)

// Start initialises a ValKey instance and returns a client, database port, and termination function.
//
// The access token and user slots of SeededProfile are written under Prefix.
func Start(ctx context.Context) (valkey.Client, nat.Port, func(ctx context.Context)) {
	valkeyContainer, err := valkeycontainer.Run(ctx, "valkey/valkey:8-alpine")
	if err != nil {
		slogctx.Error(ctx, "Failed to start ValKey container", "error", err)
		panic(err)
	}

	port, err := valkeyContainer.MappedPort(ctx, nat.Port("6379"))
	if err != nil {
		slogctx.Error(ctx, "Failed to map a port for the ValKey container", "error", err)
		panic(err)
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{net.JoinHostPort("localhost", port.Port())},
	})
	if err != nil {
		slogctx.Error(ctx, "Failed to initialise a ValKey client", "error", err)
		panic(err)
	}

	err = Seed(ctx, client, Prefix, SeededProfile, map[string]string{
		"access_token": SeededAccessToken,
		"user":         SeededUser,
	})
	if err != nil {
		slogctx.Error(ctx, "Failed to seed the ValKey container", "error", err)
		panic(err)
	}

	terminate := func(ctx context.Context) {
		err := valkeyContainer.Terminate(ctx)
		if err != nil {
			slogctx.Error(ctx, "Failed to terminate ValKey container", "error", err)
			panic(err)
		}
	}

	return client, port, terminate
}

// Seed writes every slot of profile under <prefix>:<profile>:<slot>.
func Seed(ctx context.Context, client valkey.Client, prefix, profile string, slots map[string]string) error {
	cmds := make([]valkey.Completed, 0, len(slots))
	for slot, value := range slots {
		cmds = append(cmds, client.B().Set().Key(Key(prefix, profile, slot)).Value(value).Build())
	}

	for _, resp := range client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("seeding profile %q: %w", profile, err)
		}
	}

	return nil
}

// Clear deletes every slot of profile under prefix and reports how many
// keys were removed.
func Clear(ctx context.Context, client valkey.Client, prefix, profile string) (int64, error) {
	keys, err := client.Do(ctx, client.B().Keys().Pattern(Key(prefix, profile, "*")).Build()).AsStrSlice()
	if err != nil {
		return 0, fmt.Errorf("listing keys of profile %q: %w", profile, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := client.Do(ctx, client.B().Del().Key(keys...).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("clearing profile %q: %w", profile, err)
	}

	return n, nil
}

// Key returns the key a slot of profile is stored under.
func Key(prefix, profile, slot string) string {
	return fmt.Sprintf("%s:%s:%s", strings.TrimSuffix(prefix, ":"), profile, slot)
}
