package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/liquex-dev/liquex/internal/api"
	"github.com/liquex-dev/liquex/internal/market"
	"github.com/liquex-dev/liquex/internal/server"
	"github.com/liquex-dev/liquex/internal/vault"
	"github.com/liquex-dev/liquex/pkg/kv"
	"github.com/liquex-dev/liquex/pkg/schema"
)

func main() {
	fmt.Println("Starting Liquex Daemon...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file (this is normal in production)")
	}

	dataDir := os.Getenv("LIQUEX_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	port := os.Getenv("LIQUEX_PORT")
	if port == "" {
		port = "7101"
	}

	httpPort := os.Getenv("LIQUEX_HTTP_PORT")
	if httpPort == "" {
		httpPort = "7102"
	}

	useTLS := os.Getenv("LIQUEX_DISABLE_TLS") != "true"

	// Initialize the storage backend
	var store kv.Store

	if os.Getenv("LIQUEX_STORE_BACKEND") == "sqlite" {
		sqlStore, err := kv.OpenSQLite(filepath.Join(dataDir, "liquex.db"))
		if err != nil {
			log.Fatalf("Failed to open sqlite store: %v", err)
		}
		store = sqlStore
		fmt.Println("Engine started on sqlite backend.")
	} else {
		persister, err := kv.NewPersistence(dataDir)
		if err != nil {
			log.Fatalf("Failed to initialize persistence: %v", err)
		}
		initialData, err := persister.LoadAll()
		if err != nil {
			log.Printf("Warning: Could not load existing data: %v", err)
		}
		store = kv.NewMemStore(initialData, persister)
		fmt.Printf("Engine started. Loaded %d collections.\n", len(initialData))
	}

	// Passcodes are encrypted at rest when a vault key is configured.
	if passphrase := os.Getenv("LIQUEX_VAULT_KEY"); passphrase != "" {
		store = kv.Encrypted(store, vault.DeriveKey(passphrase), schema.PasscodeCollection(""))
		fmt.Println("At-rest encryption enabled for passcode records.")
	}

	// Initialize the TCP router for remote store clients
	router := server.NewRouter(store)

	if useTLS {
		fmt.Println("Generating self-signed certificate for internal TLS...")
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			log.Fatalf("Failed to generate TLS certificate: %v", err)
		}
		router.SetCertificate(cert)
		fmt.Println("TLS encryption enabled.")
	} else {
		fmt.Println("TLS encryption disabled (LIQUEX_DISABLE_TLS=true).")
	}

	// Initialize the marketplace HTTP API for the UI layer
	h := &api.Handler{Market: market.New(store)}
	r := gin.Default()

	// CORS for the browser UI
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Actor-ID, X-Actor-Name")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	h.Routes(r.Group("/api"))

	go func() {
		fmt.Printf("HTTP marketplace API listening on :%s\n", httpPort)
		if err := r.Run(":" + httpPort); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown: drain pending disk writes before exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutdown signal received. Finalizing disk writes...")
		if err := store.Close(); err != nil {
			log.Printf("Warning: Store close failed: %v", err)
		}
		fmt.Println("Persistence complete. Exiting.")
		os.Exit(0)
	}()

	fmt.Printf("Liquex store listening on :%s (TCP)\n", port)
	if err := router.Listen(port); err != nil {
		select {
		case <-sigChan:
		default:
			log.Fatalf("TCP Server failed: %v", err)
		}
	}
}
