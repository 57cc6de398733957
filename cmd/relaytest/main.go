// relaytest connects to a running relay and streams broadcast messages to
// the console.
// Usage: go run ./cmd/relaytest --addr localhost:8889 --options "AAPL  260221C00200000"
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8889", "relay address")
	options := flag.String("options", "", "comma-separated option symbols to subscribe")
	equities := flag.String("equities", "", "comma-separated equity tickers to subscribe")
	status := flag.Bool("status", true, "request a status snapshot after subscribing")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	url := "ws://" + *addr
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		logger.Error("failed to connect", "url", url, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	logger.Info("connected", "url", url)

	send := func(command string, symbols []string) {
		msg := map[string]any{"command": command}
		if len(symbols) > 0 {
			msg["symbols"] = symbols
		}
		if err := conn.WriteJSON(msg); err != nil {
			logger.Error("failed to send command", "command", command, "error", err)
			os.Exit(1)
		}
		logger.Info("sent command", "command", command, "symbols", symbols)
	}

	if *options != "" {
		send("subscribe_options", splitSymbols(*options))
	}
	if *equities != "" {
		send("subscribe_equities", splitSymbols(*equities))
	}
	if *status {
		send("get_status", nil)
	}

	// Close the socket on interrupt so the read loop below exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("connection closed", "error", err)
			return
		}

		if *verbose {
			fmt.Println(string(data))
			continue
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Println(string(data))
			continue
		}

		switch msg.Type {
		case "option_quote", "equity_quote":
			var q struct {
				Symbol string   `json:"symbol"`
				Bid    *float64 `json:"bid"`
				Ask    *float64 `json:"ask"`
				Last   *float64 `json:"last"`
			}
			json.Unmarshal(msg.Data, &q)
			fmt.Printf("%-13s %-22s bid=%s ask=%s last=%s\n",
				msg.Type, q.Symbol, fmtPrice(q.Bid), fmtPrice(q.Ask), fmtPrice(q.Last))
		case "status", "pong":
			// Direct replies carry no data envelope; print them whole.
			fmt.Println(string(data))
		default:
			fmt.Printf("%-13s %s\n", msg.Type, string(msg.Data))
		}
	}
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		// Option symbols carry significant interior padding; trim only the
		// edges a shell quote leaves behind.
		if trimmed := strings.Trim(p, " "); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fmtPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
