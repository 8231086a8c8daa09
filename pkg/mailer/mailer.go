// Package mailer sends transactional email through Gmail SMTP authenticated
// with an OAuth2 refresh-token grant. The access token is cached and renewed
// by the token source only when it expires, so sending does not trigger a
// token exchange per message.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"golang.org/x/oauth2"

	"mystore/internal/apperrors"
)

const (
	smtpHost    = "smtp.gmail.com"
	smtpPort    = 587
	redirectURL = "https://developers.google.com/oauthplayground"

	// Bound on connect, greeting and per-command socket waits so a stalled
	// provider cannot hang the caller.
	sendTimeout = 5 * time.Second
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Config holds the Google OAuth2 credentials and sender identity.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Sender       string // Gmail account used as SMTP user and default From
}

// Message is a standard mail envelope. From is optional; the configured
// sender is applied when it is empty.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer sends messages over an authenticated SMTP channel. Every send is
// independent; retry policy belongs to the caller.
type Mailer struct {
	cfg         Config
	tokenSource oauth2.TokenSource
	timeout     time.Duration
}

// New creates a Mailer. The OAuth2 token source is built once here and
// reused across sends.
func New(cfg Config) (*Mailer, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" || cfg.Sender == "" {
		return nil, fmt.Errorf("missing Google OAuth2 configuration for mailer")
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     googleEndpoint,
		RedirectURL:  redirectURL,
	}

	return &Mailer{
		cfg:         cfg,
		tokenSource: oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken}),
		timeout:     sendTimeout,
	}, nil
}

// Send delivers a single message and classifies any failure. The underlying
// diagnostic is logged here before it is mapped, so no provider detail has
// to travel up with the error.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	token, err := m.tokenSource.Token()
	if err != nil {
		log.Printf("Mailer token exchange failed: %v", err)
		return apperrors.Wrap(apperrors.KindGateway, "failed to obtain mail access token", err)
	}
	if token.AccessToken == "" {
		return apperrors.Gateway("empty mail access token")
	}

	client, err := mail.NewClient(smtpHost,
		mail.WithPort(smtpPort),
		mail.WithSMTPAuth(mail.SMTPAuthXOAUTH2),
		mail.WithUsername(m.cfg.Sender),
		mail.WithPassword(token.AccessToken),
		mail.WithTimeout(m.timeout),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		log.Printf("Mailer client setup failed: %v", err)
		return apperrors.Wrap(apperrors.KindGateway, "failed to build mail transport", err)
	}

	mm := mail.NewMsg()
	from := msg.From
	if from == "" {
		from = fmt.Sprintf("MyStore App <%s>", m.cfg.Sender)
	}
	if err := mm.From(from); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "invalid sender address", err)
	}
	if err := mm.To(msg.To); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "invalid recipient address", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)

	// Dial first so an unreachable provider is reported before any
	// message data is committed.
	if err := client.DialWithContext(ctx); err != nil {
		log.Printf("Mailer dial failed: %v", err)
		return classifyTransportError(err)
	}
	defer client.Close()

	if err := client.Send(mm); err != nil {
		log.Printf("Mailer send failed for %s: %v", msg.To, err)
		return classifyTransportError(err)
	}
	return nil
}

// classifyTransportError maps SMTP and network failures to the taxonomy:
// auth rejections, timeout-class errors, and everything else as a generic
// gateway failure.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrap(apperrors.KindUnavailable, "mail provider timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(apperrors.KindUnavailable, "mail provider timed out", err)
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "timeout"), strings.Contains(text, "timed out"):
		return apperrors.Wrap(apperrors.KindUnavailable, "mail provider timed out", err)
	case strings.Contains(text, "535"), strings.Contains(text, "534"),
		strings.Contains(text, "auth"), strings.Contains(text, "username and password not accepted"):
		return apperrors.Wrap(apperrors.KindAuth, "mail provider rejected credentials", err)
	default:
		return apperrors.Wrap(apperrors.KindGateway, "failed to send mail", err)
	}
}
