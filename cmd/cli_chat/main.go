package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"alum-messaging/internal/client"
	"alum-messaging/internal/domain"
	"alum-messaging/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	userID := os.Getenv("CHAT_USER_ID")
	if userID == "" {
		log.Fatal("CHAT_USER_ID requerido")
	}
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		log.Fatal("SESSION_SECRET requerido")
	}

	logger := zap.NewExample()
	defer logger.Sync()

	// En local la CLI se emite su propia credencial con el mismo secreto
	// del servidor; en producción la cookie viene del proveedor de
	// identidad.
	tokens := service.NewSessionTokenService(secret, 24*time.Hour)
	sessionToken, err := tokens.Mint(domain.User{ID: userID})
	if err != nil {
		log.Fatal(err)
	}

	api := client.NewHTTPAPI(baseURL, sessionToken)
	transport := client.NewTransport(baseURL, logger)
	engine := client.NewEngine(logger, api, transport, client.NewStore())

	transport.OnNewMessage(func(domain.Envelope) {
		fmt.Println("\n[nuevo mensaje recibido]")
	})

	engine.Start(ctx, sessionToken)
	defer engine.Stop()

	if err := engine.FetchConversations(ctx); err != nil {
		fmt.Println("No se pudieron cargar las conversaciones:", err)
	}
	if err := engine.FetchUnreadCount(ctx); err != nil {
		fmt.Println("No se pudieron cargar los no leídos:", err)
	}

	for {
		fmt.Println("===== Mensajes =====")
		fmt.Printf("No leídos en total: %d\n", engine.Store().UnreadCount())
		conversations := engine.Store().Conversations()
		for i, conv := range conversations {
			line := fmt.Sprintf("[%d] %s", i+1, displayName(conv))
			if conv.UnreadCount > 0 {
				line += fmt.Sprintf(" (%d sin leer)", conv.UnreadCount)
			}
			if conv.LastMessage != nil {
				line += " — " + preview(conv.LastMessage.Content)
			}
			fmt.Println(line)
		}
		fmt.Println("[N] Nuevo mensaje  [R] Refrescar  [Q] Salir")
		fmt.Print("Selecciona una conversación: ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		switch {
		case strings.EqualFold(choice, "Q"):
			return
		case strings.EqualFold(choice, "R"):
			_ = engine.FetchConversations(ctx)
			_ = engine.FetchUnreadCount(ctx)
			continue
		case strings.EqualFold(choice, "N"):
			newMessageFlow(ctx, reader, engine)
			continue
		}

		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(conversations) {
			fmt.Println("Opción inválida.")
			continue
		}
		conversationFlow(ctx, reader, engine, conversations[idx-1])
	}
}

func newMessageFlow(ctx context.Context, reader *bufio.Reader, engine *client.Engine) {
	fmt.Print("ID del destinatario: ")
	recipientID, _ := reader.ReadString('\n')
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return
	}
	fmt.Print("Mensaje: ")
	content, _ := reader.ReadString('\n')

	if _, err := engine.SendMessage(ctx, recipientID, content); err != nil {
		fmt.Println("No se pudo enviar:", err)
	}
}

func conversationFlow(ctx context.Context, reader *bufio.Reader, engine *client.Engine, conv domain.Conversation) {
	page := 1
	hasMore, err := engine.FetchConversationMessages(ctx, conv.ID, page, "")
	if err != nil {
		fmt.Println("No se pudieron cargar los mensajes:", err)
		return
	}

	for {
		printMessages(engine.Store().Messages())

		fmt.Println("[M] Más antiguos  [L] Marcar leídos  [B] Borrar conversación  [V] Volver")
		fmt.Print("Mensaje (o comando): ")
		input, _ := reader.ReadString('\n')
		trimmed := strings.TrimSpace(input)

		switch {
		case strings.EqualFold(trimmed, "V"):
			return
		case strings.EqualFold(trimmed, "M"):
			if !hasMore {
				fmt.Println("No hay mensajes más antiguos.")
				continue
			}
			page++
			cursor := client.OldestLoadedID(engine.Store().Messages())
			hasMore, err = engine.FetchConversationMessages(ctx, conv.ID, page, cursor)
			if err != nil {
				fmt.Println("No se pudo cargar la página:", err)
			}
		case strings.EqualFold(trimmed, "L"):
			var unreadIDs []string
			for _, msg := range engine.Store().Messages() {
				if msg.SenderID == conv.OtherUser.ID && msg.ReadAt == nil {
					unreadIDs = append(unreadIDs, msg.ID)
				}
			}
			if err := engine.MarkMessagesAsRead(ctx, conv.ID, unreadIDs); err != nil {
				fmt.Println("No se pudo marcar como leído:", err)
			}
		case strings.EqualFold(trimmed, "B"):
			if err := engine.DeleteConversation(ctx, conv.ID); err != nil {
				fmt.Println("No se pudo borrar:", err)
			}
			return
		default:
			if _, err := engine.SendMessage(ctx, conv.OtherUser.ID, input); err != nil {
				if errors.Is(err, client.ErrBlankMessage) {
					continue
				}
				fmt.Println("No se pudo enviar:", err)
				continue
			}
			// El mensaje enviado aparece refrescando la página, no con un
			// insert local.
			hasMore, _ = engine.FetchConversationMessages(ctx, conv.ID, 1, "")
		}
	}
}

func printMessages(messages []domain.Message) {
	groups := client.GroupMessagesByDay(messages)
	// Para consola se imprime en orden cronológico: días viejos arriba.
	for i := len(groups) - 1; i >= 0; i-- {
		fmt.Println("----", groups[i].Date.Format("2006-01-02"), "----")
		for _, msg := range groups[i].Messages {
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Format("15:04"), msg.SenderID, msg.Content)
		}
	}
}

func displayName(conv domain.Conversation) string {
	if conv.OtherUser.Name != "" {
		return conv.OtherUser.Name
	}
	return conv.OtherUser.ID
}

func preview(content string) string {
	// Se corta por runas para no partir un carácter multibyte.
	runes := []rune(content)
	if len(runes) > 40 {
		return string(runes[:40]) + "…"
	}
	return content
}
