package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mcoot/duelrooms/internal/api/response"
)

// Response types shared with the server
type (
	Room         = response.Room
	User         = response.User
	HealthResult = response.Health
)

// RoomList is a list of rooms in creation order
type RoomList []Room

// Leaderboard is the ranked list of users
type Leaderboard []User

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case *Room:
		if v == nil {
			fmt.Println("Ignored: not a participant in this room")
			return
		}
		o.printRoom(*v)
	case RoomList:
		o.printRoomList(v)
	case User:
		o.printUser(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.ID)
	fmt.Printf("Status: %s\n", r.Status)
	fmt.Printf("Host: %s (HP %d)%s\n", slot(r.HostID), r.HostHP, readyMark(r.HostReady))
	fmt.Printf("Opponent: %s (HP %d)%s\n", slot(r.OpponentID), r.OpponentHP, readyMark(r.OpponentReady))
	if r.StartAt != nil {
		fmt.Printf("Starts At: %s\n", r.StartAt.Format("15:04:05.000"))
	}
	if r.WinnerID != nil {
		fmt.Printf("Winner: %s\n", *r.WinnerID)
	}
}

func (o *Output) printRoomList(rooms RoomList) {
	if len(rooms) == 0 {
		fmt.Println("No rooms")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tHOST\tOPPONENT\tHP")
	for _, r := range rooms {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			r.ID, r.Status, slot(r.HostID), slot(r.OpponentID), r.HostHP, r.OpponentHP)
	}
	_ = w.Flush()
}

func (o *Output) printUser(u User) {
	fmt.Printf("User: %s (%s)\n", u.DisplayName, u.ID)
	fmt.Printf("Record: %d wins, %d losses\n", u.Wins, u.Losses)
}

func (o *Output) printLeaderboard(users Leaderboard) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tNAME\tWINS\tLOSSES")
	for i, u := range users {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", i+1, u.DisplayName, u.Wins, u.Losses)
	}
	_ = w.Flush()
}

func slot(id *string) string {
	if id == nil {
		return "(open)"
	}
	return *id
}

func readyMark(ready bool) string {
	if ready {
		return " [ready]"
	}
	return ""
}
