package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/tablehouse/eventdesk/internal/models"
)

type captureSender struct {
	messages []Message
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.messages = append(c.messages, msg)
	return nil
}

func TestGiftReceivedIncludesCodeAndMessage(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, "https://tablehouse.example/")

	card := models.GiftCard{
		Code:            "ABCD2345",
		OriginalCents:   10_000,
		OwnerName:       "Bo",
		OwnerEmail:      "bo@example.com",
		BuyerName:       "Cy",
		PersonalMessage: "Happy birthday",
	}
	if errSend := n.GiftReceived(context.Background(), card); errSend != nil {
		t.Fatalf("GiftReceived: %v", errSend)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.messages))
	}
	msg := sender.messages[0]
	if msg.To != "bo@example.com" || msg.Kind != KindGiftReceived {
		t.Fatalf("unexpected message %+v", msg)
	}
	for _, want := range []string{"ABCD2345", "$100.00", "Happy birthday", "https://tablehouse.example/gift-cards/balance"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestOrderConfirmationListsBonusCards(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, "")

	order := models.GiftCardOrder{OrderID: "order-1", BuyerName: "Cy", BuyerEmail: "cy@example.com", TotalCents: 10_000}
	purchased := []models.GiftCard{{Code: "PURC2345", OriginalCents: 10_000, IsGift: true, OwnerName: "Bo", OwnerEmail: "bo@example.com"}}
	bonus := []models.GiftCard{{Code: "BONU2345", OriginalCents: 2_000, IsBonus: true}}
	if errSend := n.OrderConfirmation(context.Background(), order, purchased, bonus); errSend != nil {
		t.Fatalf("OrderConfirmation: %v", errSend)
	}
	body := sender.messages[0].Body
	for _, want := range []string{"order-1", "PURC2345", "for Bo", "BONU2345: $20.00", "Total paid: $100.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestBookingConfirmationForTickets(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, "")

	booking := models.Booking{
		Kind:          models.BookingKindHalloween,
		BookingNumber: "HAL-1234",
		Name:          "Fay",
		Email:         "fay@example.com",
		Date:          "2099-10-31",
		TimeSlot:      "event",
		PartySize:     3,
		AmountCents:   9_000,
	}
	if errSend := n.BookingConfirmation(context.Background(), booking); errSend != nil {
		t.Fatalf("BookingConfirmation: %v", errSend)
	}
	msg := sender.messages[0]
	if !strings.Contains(msg.Subject, "HAL-1234") {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if strings.Contains(msg.Body, "Time:") {
		t.Fatalf("ticket body should not show a time slot:\n%s", msg.Body)
	}
	for _, want := range []string{"Tickets: 3", "Paid: $90.00"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

type fakePublisher struct {
	input *sns.PublishInput
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{}, f.err
}

func TestSNSSenderPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	sender := &SNSSender{client: pub, topicARN: "arn:aws:sns:ca-central-1:000000000000:email"}
	msg := Message{To: "bo@example.com", Subject: "Hello\nthere", Body: "body", Kind: KindGiftReceived}
	if errSend := sender.Send(context.Background(), msg); errSend != nil {
		t.Fatalf("Send: %v", errSend)
	}
	if pub.input == nil || *pub.input.TopicArn != sender.topicARN {
		t.Fatalf("unexpected publish input %+v", pub.input)
	}
	if !strings.Contains(*pub.input.Message, `"to":"bo@example.com"`) {
		t.Fatalf("message = %s", *pub.input.Message)
	}
	if *pub.input.Subject != "Hello there" {
		t.Fatalf("subject = %q", *pub.input.Subject)
	}
	if got := *pub.input.MessageAttributes["event_type"].StringValue; got != "email.gift_received" {
		t.Fatalf("event_type = %q", got)
	}

	pub.err = errors.New("throttled")
	if errSend := sender.Send(context.Background(), msg); errSend == nil {
		t.Fatalf("expected publish error")
	}
}

func TestBuildMIMEUsesCRLF(t *testing.T) {
	raw := string(buildMIME("desk@example.com", Message{To: "a@example.com", Subject: "Hi\r\nBcc: x", Body: "line1\nline2"}))
	if !strings.Contains(raw, "Subject: Hi  Bcc: x\r\n") {
		t.Fatalf("subject header not sanitised:\n%q", raw)
	}
	if !strings.HasSuffix(raw, "line1\r\nline2") {
		t.Fatalf("body not CRLF terminated:\n%q", raw)
	}
}
