package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/p0isonxs/synqType/internal/betting"
	"github.com/p0isonxs/synqType/internal/bus"
	"github.com/p0isonxs/synqType/internal/db"
	"github.com/p0isonxs/synqType/internal/handlers"
	"github.com/p0isonxs/synqType/internal/manager"
)

// Initialize logging and optional external services.
func init() {
	godotenv.Load()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		if err := db.Connect(uri); err != nil {
			log.Printf("MongoDB unavailable, using built-in word library: %v", err)
		}
	}
}

// middleware function at the top level
func enableCORS(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		handler(w, r)
	}
}

func main() {
	nc, err := bus.ConnectNATS(os.Getenv("NATS_URL"))
	if err != nil {
		log.Printf("NATS unavailable, rooms run single-node: %v", err)
	}

	rm := manager.NewRoomManager(50, nc, betting.LogClient{})
	handlers.Init(rm)

	http.HandleFunc("/ws/room", handlers.HandleWebSocket)

	http.HandleFunc("/api/create-room", enableCORS(handlers.HandleCreateRoom))
	http.HandleFunc("/api/room-info", enableCORS(handlers.HandleRoomInfo))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on http://localhost:%s", port)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		log.Println("Shutting down server...")
		if nc != nil {
			nc.Close()
		}
		os.Exit(0)
	}()

	log.Fatal(http.ListenAndServe(":"+port, nil))
}
