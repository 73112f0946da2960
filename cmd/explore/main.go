// Command explore is a terminal client for the discovery API. It drives the
// location reconciliation machine and the guided recommendation dialogue and
// prints what a map view would show.
//
// Usage:
//
//	go run ./cmd/explore -server http://localhost:5001 -position 37.2636,127.0286
//
// Plain text answers the dialogue. Commands:
//
//	/province <name>   /district <name>   /drag <lat>,<lng>   /here
//	/radius <km>       /category <label>  /detail <id>        /restart   /quit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/matjip-map/discovery-service/internal/client"
	"github.com/matjip-map/discovery-service/internal/config"
	"github.com/matjip-map/discovery-service/internal/dialogue"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/observability"
	"github.com/matjip-map/discovery-service/internal/reconcile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "explore:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	server := flag.String("server", "http://localhost"+cfg.HTTPAddr, "discovery API base URL")
	chatURL := flag.String("chat", cfg.ChatBaseURL, "recommendation backend base URL")
	position := flag.String("position", "", "device position reported by /here as lat,lng (empty: unavailable)")
	start := flag.String("start", "", "initial coordinate as lat,lng (as if passed in the URL)")
	flag.Parse()

	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(*server, uuid.NewString(), 10*time.Second, logger)
	table, err := api.Regions(ctx)
	if err != nil {
		return fmt.Errorf("fetch regions: %w", err)
	}

	geo := fixedGeolocator{}
	if *position != "" {
		c, err := parseCoordinate(*position)
		if err != nil {
			return fmt.Errorf("-position: %w", err)
		}
		geo.coord = &c
	}

	view := &terminalView{out: os.Stdout}
	machine := reconcile.New(table, api, view, geo, reconcile.Options{
		GeolocationTimeout: cfg.GeolocationTimeout,
		Logger:             logger,
	})
	chat := dialogue.New(client.NewChatClient(*chatURL, 30*time.Second, logger), machine, dialogue.Options{
		Geocoder: api,
		Logger:   logger,
	})

	var urlCoord *domain.Coordinate
	if *start != "" {
		c, err := parseCoordinate(*start)
		if err != nil {
			return fmt.Errorf("-start: %w", err)
		}
		urlCoord = &c
	}
	if err := machine.Start(ctx, urlCoord); err != nil {
		report(err)
	}

	fmt.Printf("session %s\n", api.SessionID())
	printLast(chat, 0)
	return loop(ctx, os.Stdin, machine, chat)
}

func loop(ctx context.Context, in io.Reader, machine *reconcile.Machine, chat *dialogue.Dialogue) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		if !strings.HasPrefix(line, "/") {
			seen := len(chat.Transcript())
			if _, err := chat.Input(ctx, line); err != nil {
				if errors.Is(err, dialogue.ErrFinished) {
					fmt.Println("대화가 끝났어요. /restart 로 다시 시작하세요.")
					continue
				}
				report(err)
			}
			printLast(chat, seen+1)
			continue
		}

		cmd, arg, _ := strings.Cut(line[1:], " ")
		arg = strings.TrimSpace(arg)
		var err error
		switch cmd {
		case "quit", "exit":
			return nil
		case "province":
			err = machine.SelectProvince(ctx, arg)
		case "district":
			err = machine.SelectDistrict(ctx, arg)
		case "drag":
			var c domain.Coordinate
			if c, err = parseCoordinate(arg); err == nil {
				err = machine.DragEnd(ctx, c)
			}
		case "here":
			err = machine.UseCurrentPosition(ctx)
		case "radius":
			var km float64
			if km, err = strconv.ParseFloat(arg, 64); err == nil {
				err = machine.SetRadius(ctx, km)
			}
		case "category":
			err = machine.SetCategory(ctx, domain.Category(arg))
		case "detail":
			var id int64
			if id, err = strconv.ParseInt(arg, 10, 64); err == nil {
				err = machine.OpenDetail(ctx, id)
			}
		case "restart":
			chat.Restart()
			printLast(chat, 0)
		default:
			err = fmt.Errorf("unknown command %q", cmd)
		}
		if err != nil {
			report(err)
		}
	}
}

func printLast(chat *dialogue.Dialogue, from int) {
	tr := chat.Transcript()
	for _, m := range tr[min(from, len(tr)):] {
		if m.Role == dialogue.RoleSystem {
			fmt.Println("  ", m.Text)
		}
	}
}

func report(err error) {
	var ge *reconcile.GeolocationError
	switch {
	case errors.As(err, &ge):
		fmt.Printf("현재 위치를 가져올 수 없어요 (%s)\n", ge.Kind)
	case errors.Is(err, domain.ErrUnavailable):
		fmt.Println("서버에 연결할 수 없어요:", err)
	default:
		fmt.Println("error:", err)
	}
}

func parseCoordinate(s string) (domain.Coordinate, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coordinate{}, fmt.Errorf("want lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("longitude: %w", err)
	}
	c := domain.Coordinate{Lat: lat, Lng: lng}
	return c, c.Validate()
}
