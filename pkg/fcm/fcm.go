package fcm

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(credentialsFile string) (*Client, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Println("[FCM] Client initialized successfully")
	return &Client{
		messagingClient: messagingClient,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string // Custom data payload
}

// SendOutcome is the per-token result of a multicast send.
type SendOutcome struct {
	Token   string
	Success bool
	// Permanent reports that the token will never work again
	// (unregistered or rejected as invalid) and should be pruned.
	Permanent bool
	Err       error
}

// MulticastResult aggregates the outcomes of one multicast call.
type MulticastResult struct {
	SuccessCount int
	FailureCount int
	Outcomes     []SendOutcome
}

// SendToDevice sends a push notification to a single device token
func (c *Client) SendToDevice(ctx context.Context, token string, notification NotificationData) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
	}

	response, err := c.messagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}

	log.Printf("[FCM] Message sent successfully: %s", response)
	return nil
}

// SendToDevices sends a push notification to multiple device tokens in one
// multicast call and reports the per-token outcome.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) (*MulticastResult, error) {
	if len(tokens) == 0 {
		return &MulticastResult{}, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	log.Printf("[FCM] Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)

	result := &MulticastResult{
		SuccessCount: response.SuccessCount,
		FailureCount: response.FailureCount,
	}
	for i, resp := range response.Responses {
		outcome := SendOutcome{
			Token:   tokens[i],
			Success: resp.Success,
		}
		if !resp.Success {
			outcome.Err = resp.Error
			outcome.Permanent = messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}
