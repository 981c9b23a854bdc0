package main

import (
	"flag"
	"log"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const defaultAddr = "localhost:3000"

type message struct {
	Text      string   `json:"text"`
	Hashtags  []string `json:"hashtags"`
	CreatedAt string   `json:"createdAt"`
}

// Listens on the pending-message feed of one user and prints what arrives.
func main() {
	addr := flag.String("addr", defaultAddr, "server host:port")
	username := flag.String("username", "", "social username")
	contract := flag.String("contract", "", "campaign contract address")
	flag.Parse()

	if *username == "" || *contract == "" {
		log.Fatal("username and contract are required")
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	q := u.Query()
	q.Set("twittUsername", *username)
	q.Set("contractAddress", *contract)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	messageQueue := make(chan []byte)

	go func() {
		defer close(messageQueue)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			messageQueue <- p
		}
	}()

	for raw := range messageQueue {
		var m message
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Printf("Received:\n%s\n", raw)
			continue
		}
		log.Printf("Received message %q hashtags=%v at %s\n", m.Text, m.Hashtags, m.CreatedAt)
	}
}
