package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sauldoescode/saul.app/pkg/ratelimit"
	"github.com/sauldoescode/saul.app/pkg/render"
	"github.com/sauldoescode/saul.app/pkg/vdom"
)

// RenewWindow is how close to expiry a token gets renewed on use.
const RenewWindow = 48 * time.Hour

// Config holds the names and addresses used in auth mail.
type Config struct {
	AppName string
	// BaseURL prefixes magic links, e.g. "https://saul.app".
	BaseURL string
}

// Service runs the account flows on top of a Store.
type Service struct {
	store   *Store
	tokens  *Tokens
	mailer  Mailer
	limiter *ratelimit.Keyed
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEmailLimiter replaces the per-address mail limiter.
func WithEmailLimiter(k *ratelimit.Keyed) Option {
	return func(s *Service) { s.limiter = k }
}

// WithClock overrides the time source used to stamp tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(store *Store, tokens *Tokens, mailer Mailer, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:   store,
		tokens:  tokens,
		mailer:  mailer,
		limiter: ratelimit.Per(3, 5*time.Minute),
		cfg:     cfg,
		logger:  slog.Default().With("component", "auth"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailer == nil {
		s.mailer = LogMailer{Logger: s.logger}
	}
	return s
}

// Store returns the underlying user store.
func (s *Service) Store() *Store { return s.store }

// Tokens returns the token signer.
func (s *Service) Tokens() *Tokens { return s.tokens }

// UsernameAvailable reports whether username is valid and unclaimed.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	return s.store.UsernameAvailable(ctx, username)
}

// Authenticate finds or creates the account for email and username and
// mails it a magic link.
func (s *Service) Authenticate(ctx context.Context, email, username string) (*User, error) {
	if !ValidEmail(email) || !ValidUsername(username) {
		return nil, ErrInvalidUsernameOrEmail
	}

	u, err := s.store.ByDetails(ctx, email, username)
	if errors.Is(err, ErrNotFound) {
		u, err = s.register(ctx, email, username)
	}
	if err != nil {
		return nil, err
	}

	if !s.limiter.Allow(email) {
		s.logger.Warn("auth mail rate limited", "email", email)
		return u, ErrEmailRateLimit
	}

	verifier, err := s.store.SetVerifier(ctx, u)
	if err != nil {
		return u, err
	}

	if err := s.mailer.Send(ctx, s.authMail(u, verifier)); err != nil {
		s.logger.Error("sending auth mail", "email", email, "error", err)
		return u, err
	}
	return u, nil
}

func (s *Service) register(ctx context.Context, email, username string) (*User, error) {
	if _, err := s.store.ByEmail(ctx, email); err == nil {
		return nil, ErrInvalidUsernameOrEmail
	}
	available, err := s.store.UsernameAvailable(ctx, username)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrUsernameTaken
	}
	u, err := s.store.Create(ctx, email, username, UnverifiedUser)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "username", username)
	return u, nil
}

// MagicLink returns the link that consumes verifier.
func (s *Service) MagicLink(verifier string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/auth/" + verifier
}

func (s *Service) authMail(u *User, verifier string) Mail {
	link := s.MagicLink(verifier)
	subject := "Welcome to " + s.cfg.AppName
	greeting := "Welcome " + u.Username + "!"
	if u.Verified() {
		subject = "Login to " + s.cfg.AppName
		greeting = "Hi " + u.Username + ","
	}
	return Mail{
		To:      []string{u.Email},
		Subject: subject,
		Text:    fmt.Sprintf("%s\n\nFollow this link to log in to %s:\n%s\n", greeting, s.cfg.AppName, link),
		HTML: renderMail(
			vdom.H4(greeting),
			vdom.P("Follow this link to log in to "+s.cfg.AppName+":"),
			vdom.P(vdom.A(vdom.Href(link), link)),
		),
	}
}

// Verify consumes a verifier and returns the user and a fresh token.
func (s *Service) Verify(ctx context.Context, verifier string) (*User, string, error) {
	u, err := s.store.ByVerifier(ctx, verifier)
	if err != nil {
		s.logger.Debug("unknown verifier", "error", err)
		return nil, "", ErrUnauthorized
	}
	if err := s.store.ConsumeVerifier(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(ctx, u, true)
	if err != nil {
		return u, "", err
	}
	s.logger.Info("user verified", "username", u.Username, "admin", u.IsAdmin())
	return u, token, nil
}

// IssueToken records a new authentication for u and returns its token.
// Renewals (login false) do not count as logins.
func (s *Service) IssueToken(ctx context.Context, u *User, login bool) (string, error) {
	at := s.now()
	if err := s.store.RecordAuth(ctx, u, at.Unix(), login); err != nil {
		return "", err
	}
	return s.tokens.Issue(u.Key, at)
}

// Authorize resolves a token to its user. Only the most recently issued
// token of a user is accepted. When the token is close to expiry a renewed
// one is returned as well.
func (s *Service) Authorize(ctx context.Context, raw string) (*User, string, error) {
	tk, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, "", ErrUnauthorized
	}
	u, err := s.store.ByKey(ctx, tk.UserKey)
	if err != nil {
		return nil, "", ErrUnauthorized
	}
	if u.LastAuth() != tk.IssuedAt {
		return nil, "", ErrUnauthorized
	}
	if !s.tokens.ExpiresSoon(tk, RenewWindow) {
		return u, "", nil
	}
	renewed, err := s.IssueToken(ctx, u, false)
	if err != nil {
		s.logger.Warn("renewing token", "username", u.Username, "error", err)
		return u, "", nil
	}
	return u, renewed, nil
}

// ToggleSubscriber flips u's subscription to publication mails.
func (s *Service) ToggleSubscriber(ctx context.Context, u *User) error {
	return s.store.SetSubscriber(ctx, u, !u.Subscriber)
}

// NotifySubscribers mails every subscriber about a newly published writ.
func (s *Service) NotifySubscribers(ctx context.Context, title, slug string) error {
	users, err := s.store.Subscribers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	m := Mail{
		Subject: "Subscriber Update: Newly Published Writ",
		Text:    fmt.Sprintf("There's a new writ: %s\n%s/writ/%s\n", title, base, slug),
		HTML: renderMail(
			vdom.H4("There's a new writ: "+title),
			vdom.P(vdom.A(vdom.Href(base+"/writ/"+slug), "check it out")),
			vdom.Small(vdom.A(vdom.Href(base+"/subscribe-toggle"), "unsubscribe")),
		),
	}
	for _, u := range users {
		m.Bcc = append(m.Bcc, u.Email)
	}
	return s.mailer.Send(ctx, m)
}

var mailRenderer = render.NewRenderer(render.RendererConfig{})

func renderMail(nodes ...*vdom.VNode) string {
	html, err := mailRenderer.RenderToString(nodes...)
	if err != nil {
		return ""
	}
	return html
}
