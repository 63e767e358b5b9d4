package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"polychat/infrastructure/admin"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	ServerURL string        `env:"CHAT_ADMIN_URL,default=http://localhost:3001"`
	Timeout   time.Duration `env:"CHAT_ADMIN_TIMEOUT,default=5s"`
}

func main() {
	if err := run(); err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}

// run prints the server stats and its room list as a table.
func run() error {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	room := flag.String("room", "", "Show a single room")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	client := &http.Client{}

	// 2. Single room lookup
	if *room != "" {
		var resp admin.RoomResponse
		if err := fetch(ctx, client, config.ServerURL+"/api/rooms/"+*room, &resp); err != nil {
			return err
		}
		printRooms([]admin.RoomEntry{{ID: resp.Room.ID, UserCount: resp.Room.UserCount}})
		if !resp.Room.Exists {
			color.Warn.Printf("Room %s was never created\n", resp.Room.ID)
		}
		return nil
	}

	// 3. Overview
	var stats admin.StatsResponse
	if err := fetch(ctx, client, config.ServerURL+"/api/stats", &stats); err != nil {
		return err
	}
	var rooms admin.RoomsResponse
	if err := fetch(ctx, client, config.ServerURL+"/api/rooms", &rooms); err != nil {
		return err
	}

	color.New(color.BgBlack, color.FgGreen).Printf(" %d rooms, %d active, %d users \n",
		stats.Stats.TotalRooms, stats.Stats.ActiveRooms, stats.Stats.TotalUsers)
	printRooms(rooms.Rooms)
	return nil
}

func fetch(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func printRooms(rooms []admin.RoomEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Users"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, r := range rooms {
		users := strconv.Itoa(r.UserCount)
		if r.UserCount == 0 {
			users = color.Gray.Render(users)
		}
		table.Append([]string{r.ID, users})
	}
	table.Render()
}
