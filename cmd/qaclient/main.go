// Command qaclient is a terminal client for the document QA service: it can upload a PDF,
// follow document events and chat with a processed document over the realtime channel.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/pkg/events"
	pktNats "pdf-qa-be/pkg/nats"

	"github.com/fasthttp/websocket"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    *dto.DocumentResponse `json:"data"`
}

func main() {
	server := flag.String("server", "localhost:3000", "host:port of the QA service")
	upload := flag.String("upload", "", "PDF to upload before chatting")
	documentID := flag.Uint("doc", 0, "document id to ask about")
	clientID := flag.String("client", "", "realtime client id (random when empty)")
	natsURL := flag.String("watch", "", "NATS URL; print document events until interrupted")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *natsURL != "" {
		if err := watch(ctx, *natsURL); err != nil {
			color.Red("watch failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if *upload != "" {
		doc, err := uploadFile(*server, *upload)
		if err != nil {
			color.Red("upload failed: %v", err)
			os.Exit(1)
		}
		color.Green("Uploaded %s as document %d (%s)", doc.Filename, doc.Id, doc.Status)
		*documentID = doc.Id
	}

	if *documentID == 0 {
		color.Yellow("Nothing to ask: pass -doc or -upload")
		os.Exit(2)
	}
	if *clientID == "" {
		*clientID = uuid.NewString()
	}

	if err := chat(ctx, *server, *clientID, *documentID); err != nil {
		color.Red("chat ended: %v", err)
		os.Exit(1)
	}
}

func uploadFile(server, path string) (*dto.DocumentResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, "http://"+server+"/api/documents/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unexpected response (%s): %s", resp.Status, raw)
	}
	if !env.Success || env.Data == nil {
		return nil, fmt.Errorf("%s: %s", resp.Status, env.Message)
	}
	return env.Data, nil
}

func chat(ctx context.Context, server, clientID string, documentID uint) error {
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+server+"/ws/qa/"+clientID, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	color.Cyan("Connected as %s. Ask about document %d (empty line to quit)", clientID, documentID)

	frames := make(chan map[string]interface{})
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]interface{}
			if json.Unmarshal(data, &frame) == nil {
				frames <- frame
			}
		}
	}()

	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistant := color.New(color.FgCyan).PrintfFunc()
	conversationID := ""
	scanner := bufio.NewScanner(os.Stdin)

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}

		payload, _ := json.Marshal(dto.QuestionMessage{
			DocumentId:     documentID,
			Question:       question,
			ConversationId: conversationID,
		})
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}

		// Event frames may arrive before the reply.
		for answered := false; !answered; {
			frame, ok := <-frames
			if !ok {
				return fmt.Errorf("connection closed")
			}
			switch {
			case frame["type"] != nil:
				color.Blue("[event] %v", frame["data"])
			case frame["code"] != nil:
				color.Red("[%v] %v: %v", frame["code"], frame["error"], frame["detail"])
				answered = true
			default:
				if id, ok := frame["conversationId"].(string); ok {
					conversationID = id
				}
				assistant("Assistant (%.2f): %v\n", frame["confidence"], frame["answer"])
				answered = true
			}
		}
	}
}

func watch(ctx context.Context, url string) error {
	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		return err
	}
	defer sub.Close()

	cc, err := sub.Subscribe(ctx, pktNats.SubjectPrefix+".>", "", func(_ context.Context, event events.Event) error {
		color.Yellow("%s %s %v", event.Timestamp().Format(time.RFC3339), event.EventType(), event.Payload())
		return nil
	})
	if err != nil {
		return err
	}
	defer cc.Stop()

	color.Cyan("Watching %s.> on %s (Ctrl+C to stop)", pktNats.SubjectPrefix, url)
	<-ctx.Done()
	return nil
}
