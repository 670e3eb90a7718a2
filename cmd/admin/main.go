// Ops CLI for the messaging core: inspect rooms, archive negotiations and
// rebuild unread counters without going through the live service.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quotedesk/backend/internal/config"
	"quotedesk/backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	store := storage.NewService(db, rdb, zap.NewNop())

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "rooms":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin rooms <rfq_id>")
			os.Exit(1)
		}
		if err := listRooms(store, os.Args[2]); err != nil {
			log.Fatalf("error listing rooms: %v", err)
		}
	case "archive-rfq":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin archive-rfq <rfq_id>")
			os.Exit(1)
		}
		if err := archiveRFQ(store, os.Args[2]); err != nil {
			log.Fatalf("error archiving rooms: %v", err)
		}
	case "recount-unread":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin recount-unread <room_id> <identity>")
			os.Exit(1)
		}
		if err := recountUnread(store, os.Args[2], os.Args[3]); err != nil {
			log.Fatalf("error recounting unread: %v", err)
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Usage: admin <rooms|archive-rfq|recount-unread> [args]")
	os.Exit(1)
}

func listRooms(s storage.Storage, rfqID string) error {
	rooms, err := s.RoomsForRFQ(rfqID)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Printf("no rooms bound to rfq %s\n", rfqID)
		return nil
	}
	for _, r := range rooms {
		fmt.Printf("%s  participants=%v  archived=%v  created=%s\n",
			r.RoomID, []string(r.Participants), r.Archived, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func archiveRFQ(s storage.Storage, rfqID string) error {
	rooms, err := s.RoomsForRFQ(rfqID)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		if err := s.ArchiveRoom(r.RoomID); err != nil {
			return err
		}
		fmt.Printf("archived room %s\n", r.RoomID)
	}
	return nil
}

// recountUnread drops the cached counter and rebuilds it from postgres.
func recountUnread(s *storage.Service, roomID, identity string) error {
	if err := s.Redis.Del(s.Ctx, "unread:"+roomID+":"+identity).Err(); err != nil {
		return err
	}
	count, err := s.UnreadCount(roomID, identity)
	if err != nil {
		return err
	}
	fmt.Printf("unread(%s, %s) = %d\n", roomID, identity, count)
	return nil
}
