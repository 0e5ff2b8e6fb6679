package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/duelrooms/internal/realtime"
)

// Upper bound for a single realtime command
const realtimeTimeout = 30 * time.Second

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room and match commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomReadyCmd())
	cmd.AddCommand(newRoomAttackCmd())

	return cmd
}

func newRoomCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a room hosted by --user",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"hostId": cfg.UserID}
			var result Room

			if err := client.Post("/api/v1/rooms", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomList

			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room

			if err := client.Get("/api/v1/rooms/"+args[0], &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <id>",
		Short: "Take a slot in the room as --user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cfg.RequireUser()
			if err != nil {
				return err
			}

			return withRealtime(cmd.Context(), func(ctx context.Context, conn *realtime.Conn) error {
				room, err := client.Emit(ctx, conn, realtime.EventJoinGame, realtime.JoinPayload{
					RoomID:        args[0],
					ParticipantID: user,
				})
				if err != nil {
					return err
				}
				NewOutput(cfg.Output).Print(room)
				return nil
			})
		},
	}
}

func newRoomReadyCmd() *cobra.Command {
	var off, wait bool

	cmd := &cobra.Command{
		Use:   "ready <id>",
		Short: "Mark --user ready (or not ready with --off)",
		Long: `Toggle the ready flag of --user in the room.

Once both participants are ready the match starts after a short grace
period. With --wait the command blocks until the match goes live, and
fails if either participant withdraws first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cfg.RequireUser()
			if err != nil {
				return err
			}
			roomID := args[0]

			return withRealtime(cmd.Context(), func(ctx context.Context, conn *realtime.Conn) error {
				if wait {
					// Follow the room so the go-live update reaches us
					if _, err := client.Emit(ctx, conn, realtime.EventJoin, realtime.JoinPayload{RoomID: roomID}); err != nil {
						return err
					}
				}

				room, err := client.Emit(ctx, conn, realtime.EventPlayerReady, realtime.ReadyPayload{
					RoomID:        roomID,
					ParticipantID: user,
					Ready:         !off,
				})
				if err != nil {
					return err
				}
				if wait && room != nil && room.Status == "starting" {
					if room, err = awaitLive(ctx, conn); err != nil {
						return err
					}
				}

				NewOutput(cfg.Output).Print(room)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Withdraw readiness")
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the match goes live")

	return cmd
}

func newRoomAttackCmd() *cobra.Command {
	var times int

	cmd := &cobra.Command{
		Use:   "attack <id>",
		Short: "Attack the other participant as --user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cfg.RequireUser()
			if err != nil {
				return err
			}
			if times < 1 {
				return fmt.Errorf("--times must be at least 1")
			}

			return withRealtime(cmd.Context(), func(ctx context.Context, conn *realtime.Conn) error {
				var room *Room
				for range times {
					room, err = client.Emit(ctx, conn, realtime.EventAttack, realtime.AttackPayload{
						RoomID:     args[0],
						AttackerID: user,
					})
					if err != nil {
						return err
					}
					if room != nil && room.Status == "finished" {
						break
					}
				}

				NewOutput(cfg.Output).Print(room)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&times, "times", "n", 1, "Number of attacks to send")

	return cmd
}

// withRealtime runs fn over a fresh WebSocket connection
func withRealtime(parent context.Context, fn func(ctx context.Context, conn *realtime.Conn) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, realtimeTimeout)
	defer cancel()

	conn, err := client.Realtime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	return fn(ctx, conn)
}

// awaitLive waits for the room to leave the starting phase.
// Updates queued before the countdown began are skipped.
func awaitLive(ctx context.Context, conn *realtime.Conn) (*Room, error) {
	counting := false
	for {
		select {
		case env := <-conn.Events():
			if env.Event != realtime.EventGameUpdate {
				continue
			}
			var room Room
			if err := json.Unmarshal(env.Payload, &room); err != nil {
				return nil, fmt.Errorf("failed to parse room update: %w", err)
			}
			switch {
			case room.Status == "starting":
				counting = true
			case room.Status == "playing":
				return &room, nil
			case counting:
				return nil, fmt.Errorf("countdown cancelled, room is %s", room.Status)
			}
		case <-conn.Done():
			return nil, realtime.ErrConnClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
