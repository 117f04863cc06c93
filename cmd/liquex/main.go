package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/liquex-dev/liquex/internal/identity"
	"github.com/liquex-dev/liquex/internal/market"
	"github.com/liquex-dev/liquex/pkg/geo"
	"github.com/liquex-dev/liquex/pkg/kv"
	"github.com/liquex-dev/liquex/pkg/schema"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		return
	}

	dataDir := os.Getenv("LIQUEX_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	store, err := kv.Open(dataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	// Embedded file mode persists in the background; a one-shot command
	// must drain before exit or the write never reaches disk.
	defer store.Close()

	svc := market.New(store)
	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "LOGIN":
		if len(args) < 1 {
			log.Fatal("Usage: liquex LOGIN <username> [phone]")
		}
		phone := ""
		if len(args) > 1 {
			phone = args[1]
		}
		user, err := svc.Login(args[0], phone)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(user)
		fmt.Printf("\nexport LIQUEX_ACTOR_ID=%s LIQUEX_ACTOR_NAME=%s\n", user.ID, user.Username)

	case "CREATE":
		if len(args) < 3 {
			log.Fatal("Usage: liquex CREATE <category> <kind|-> <description> [amount]")
		}
		category, err := schema.ParseCategory(args[0])
		if err != nil {
			log.Fatal(err)
		}
		customKind := args[1]
		if customKind == "-" {
			customKind = ""
		}
		amount := ""
		if len(args) > 3 {
			amount = args[3]
		}

		var loc *geo.Point
		if p, err := identity.EnvLocator(); err == nil {
			loc = &p
		}

		req, err := svc.Create(market.CreateInput{
			Owner:       currentActor(),
			Category:    category,
			CustomKind:  customKind,
			Description: args[2],
			Amount:      amount,
			Location:    loc,
		})
		if err != nil {
			log.Fatal(err)
		}
		printJSON(req)

	case "MINE":
		reqs, err := svc.Mine(currentActor())
		if err != nil {
			log.Fatal(err)
		}
		printJSON(reqs)

	case "NEARBY":
		printJSON(nearby(svc, args))

	case "WATCH":
		// Polling refresh of the nearby view. Not authoritative for
		// anything; accept/verify re-check state on their own.
		for {
			printJSON(nearby(svc, args))
			time.Sleep(30 * time.Second)
		}

	case "ACCEPT":
		if len(args) < 1 {
			log.Fatal("Usage: liquex ACCEPT <requestID>")
		}
		req, err := svc.Accept(args[0], currentActor())
		if err != nil {
			log.Fatal(err)
		}
		printJSON(req)

	case "REJECT":
		if len(args) < 1 {
			log.Fatal("Usage: liquex REJECT <requestID>")
		}
		req, err := svc.Reject(args[0], currentActor())
		if err != nil {
			log.Fatal(err)
		}
		printJSON(req)

	case "CHAT":
		if len(args) < 1 {
			log.Fatal("Usage: liquex CHAT <requestID>")
		}
		msgs, err := svc.Messages(args[0])
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format(time.Kitchen), m.SenderName, m.Body)
		}

	case "SEND":
		if len(args) < 2 {
			log.Fatal("Usage: liquex SEND <requestID> <message...>")
		}
		msg, err := svc.PostMessage(args[0], currentActor(), strings.Join(args[1:], " "))
		if err != nil {
			log.Fatal(err)
		}
		printJSON(msg)

	case "SHARE":
		if len(args) < 1 {
			log.Fatal("Usage: liquex SHARE <requestID>")
		}
		p, err := identity.EnvLocator()
		if err != nil {
			log.Fatal(market.ErrLocationUnavailable)
		}
		msg, err := svc.ShareLocation(args[0], currentActor(), p)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(msg)

	case "OTP":
		if len(args) < 1 {
			log.Fatal("Usage: liquex OTP <requestID>")
		}
		code, err := svc.IssuePasscode(args[0], currentActor())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Passcode %s expires in %s\n", code.Code, code.ExpiresIn(time.Now()).Round(time.Second))

	case "VERIFY":
		if len(args) < 2 {
			log.Fatal("Usage: liquex VERIFY <requestID> <code>")
		}
		req, err := svc.VerifyPasscode(args[0], currentActor(), args[1])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(req)

	case "MIGRATE":
		if len(args) < 1 {
			log.Fatal("Usage: liquex MIGRATE <dest-sqlite-path>")
		}
		dst, err := kv.OpenSQLite(args[0])
		if err != nil {
			log.Fatal(err)
		}
		defer dst.Close()
		if err := kv.Migrate(store, dst); err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func nearby(svc *market.Service, args []string) []schema.Request {
	origin, err := identity.EnvLocator()
	if err != nil {
		log.Fatal(market.ErrLocationUnavailable)
	}
	radius := geo.DefaultRadius
	if len(args) > 0 {
		if r, err := strconv.ParseFloat(args[0], 64); err == nil && r > 0 {
			radius = r
		}
	}
	reqs, err := svc.Nearby(currentActor(), origin, radius)
	if err != nil {
		log.Fatal(err)
	}
	return reqs
}

func currentActor() schema.Actor {
	who, ok := identity.Env{}.Current()
	if !ok {
		log.Fatal("No actor configured. Run liquex LOGIN and export LIQUEX_ACTOR_ID / LIQUEX_ACTOR_NAME.")
	}
	return who
}

func printUsage() {
	fmt.Println("Liquex CLI - peer-help marketplace")
	fmt.Println("\nUsage:")
	fmt.Println("  liquex LOGIN <username> [phone]")
	fmt.Println("  liquex CREATE <category> <kind|-> <description> [amount]")
	fmt.Println("  liquex MINE")
	fmt.Println("  liquex NEARBY [radiusMeters]")
	fmt.Println("  liquex WATCH [radiusMeters]")
	fmt.Println("  liquex ACCEPT <requestID>")
	fmt.Println("  liquex REJECT <requestID>")
	fmt.Println("  liquex CHAT <requestID>")
	fmt.Println("  liquex SEND <requestID> <message...>")
	fmt.Println("  liquex SHARE <requestID>")
	fmt.Println("  liquex OTP <requestID>")
	fmt.Println("  liquex VERIFY <requestID> <code>")
	fmt.Println("  liquex MIGRATE <dest-sqlite-path>")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  LIQUEX_DATA_DIR       Local data directory (default: ./data)")
	fmt.Println("  LIQUEX_STORE_ADDR     Address of a remote liquexd store")
	fmt.Println("  LIQUEX_STORE_BACKEND  'sqlite' for the embedded database backend")
	fmt.Println("  LIQUEX_DISABLE_TLS    Set to true to disable TLS")
	fmt.Println("  LIQUEX_ACTOR_ID       Current actor id (from LOGIN)")
	fmt.Println("  LIQUEX_ACTOR_NAME     Current actor display name")
	fmt.Println("  LIQUEX_LAT/LIQUEX_LON Current position")
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
