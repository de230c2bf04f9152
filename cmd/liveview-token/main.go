// liveview-token mints, verifies, and inspects state recovery tokens out
// of band, useful when debugging why a client's state failed to recover.
//
// Usage:
//
//	liveview-token mint    -pepper p -salt s [-key k] [-interval 14400] [-at unix] < state.json
//	liveview-token verify  -pepper p -salt s [-key k] [-interval 14400] [-at unix] < tokens.json
//	liveview-token inspect < tokens.json
//
// mint reads a JSON object mapping names to values and prints one token
// per name; verify reads the token map back and prints the recovered
// values, or fails; inspect decodes token payloads without any
// verification (never trust its output).
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Mindburn-Labs/liveview/pkg/config"
	"github.com/Mindburn-Labs/liveview/pkg/otp"
	"github.com/Mindburn-Labs/liveview/pkg/recovery"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var err error
	switch os.Args[1] {
	case "mint":
		err = runMint(os.Args[2:], logger)
	case "verify":
		err = runVerify(os.Args[2:], logger)
	case "inspect":
		err = runInspect()
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: liveview-token mint|verify|inspect [flags] < input.json")
}

// serializerFlags builds a request-scoped serializer from common flags,
// falling back to LIVEVIEW_* environment configuration.
func serializerFlags(fs *flag.FlagSet, args []string) (*recovery.Serializer, error) {
	env := config.Load()

	pepper := fs.String("pepper", env.Pepper, "server pepper (required)")
	key := fs.String("key", env.MasterKey, "explicit master key; empty uses the weak derived default")
	salt := fs.String("salt", "", "session/connection salt (required)")
	interval := fs.Int("interval", int(env.Interval/time.Second), "rotation interval in seconds")
	at := fs.Int64("at", 0, "unix timestamp to evaluate the rotating code at (0 = now)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *pepper == "" {
		return nil, fmt.Errorf("-pepper (or LIVEVIEW_PEPPER) is required")
	}
	if *salt == "" {
		return nil, fmt.Errorf("-salt is required")
	}

	var kp otp.KeyProvider
	if *key != "" {
		kp = otp.ExplicitKey([]byte(*key))
	}

	mgr, err := recovery.NewManager(recovery.Config{
		Pepper:           *pepper,
		Key:              kp,
		Interval:         time.Duration(*interval) * time.Second,
		MaxValues:        env.MaxValues,
		MaxPayloadLength: env.MaxPayloadLength,
	})
	if err != nil {
		return nil, err
	}

	var t time.Time
	if *at != 0 {
		t = time.Unix(*at, 0)
	}
	return mgr.Serializer(*salt, t)
}

func runMint(args []string, logger *slog.Logger) error {
	ser, err := serializerFlags(flag.NewFlagSet("mint", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	var state map[string]any
	if err := json.NewDecoder(os.Stdin).Decode(&state); err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	tokens, err := ser.SerializeState(state)
	if err != nil {
		return err
	}
	logger.Info("state serialized", "values", len(tokens))
	return printJSON(tokens)
}

func runVerify(args []string, logger *slog.Logger) error {
	ser, err := serializerFlags(flag.NewFlagSet("verify", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	var tokens map[string]recovery.Token
	if err := json.NewDecoder(os.Stdin).Decode(&tokens); err != nil {
		return fmt.Errorf("read tokens: %w", err)
	}

	state, err := ser.DeserializeState(tokens)
	if err != nil {
		return err
	}
	logger.Info("state recovered", "values", len(state))
	return printJSON(state)
}

func runInspect() error {
	var tokens map[string]recovery.Token
	if err := json.NewDecoder(os.Stdin).Decode(&tokens); err != nil {
		return fmt.Errorf("read tokens: %w", err)
	}

	type inspection struct {
		TypeID    string          `json:"type_id"`
		Payload   json.RawMessage `json:"payload,omitempty"`
		Signature string          `json:"signature,omitempty"`
	}

	out := make(map[string]inspection, len(tokens))
	for name, tok := range tokens {
		entry := inspection{TypeID: tok.TypeID, Signature: tok.Signature}
		if tok.Payload != "" {
			raw, err := base64.URLEncoding.DecodeString(tok.Payload)
			if err != nil {
				return fmt.Errorf("token %q: malformed payload: %w", name, err)
			}
			entry.Payload = json.RawMessage(raw)
		}
		out[name] = entry
	}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
