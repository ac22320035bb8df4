package blur

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/nftbidbot/internal/crypto"
	"github.com/alanyoungcy/nftbidbot/internal/platform/request"
)

// Session owns the Blur gateway access token. Lifecycle: unauthenticated →
// authenticated(token) → invalidated-on-401 → re-authenticate on the next
// auth-dependent call. The token is obtained by signing the gateway's auth
// challenge with the wallet key.
type Session struct {
	http          *request.Client
	signer        *crypto.Signer
	walletAddress string
	logger        *slog.Logger

	mu    sync.Mutex
	token string
}

// NewSession creates an unauthenticated session for the given wallet.
func NewSession(http *request.Client, signer *crypto.Signer, walletAddress string, logger *slog.Logger) *Session {
	return &Session{
		http:          http,
		signer:        signer,
		walletAddress: walletAddress,
		logger:        logger,
	}
}

type authChallenge struct {
	Message       string `json:"message"`
	WalletAddress string `json:"walletAddress"`
	ExpiresOn     string `json:"expiresOn"`
	Hmac          string `json:"hmac"`
	Signature     string `json:"signature,omitempty"`
}

type authLoginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Token returns the cached access token, running the challenge/login
// exchange when the session is unauthenticated.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	var challenge authChallenge
	err := s.http.PostJSON(ctx, "/auth/challenge",
		map[string]any{"walletAddress": s.walletAddress}, &challenge)
	if err != nil {
		return "", fmt.Errorf("blur: auth challenge: %w", err)
	}

	challenge.Signature, err = s.signer.SignPersonalMessage(challenge.Message)
	if err != nil {
		return "", fmt.Errorf("blur: sign auth challenge: %w", err)
	}

	var login authLoginResponse
	if err := s.http.PostJSON(ctx, "/auth/login", challenge, &login); err != nil {
		return "", fmt.Errorf("blur: auth login: %w", err)
	}
	if login.AccessToken == "" {
		return "", fmt.Errorf("blur: auth login returned empty token")
	}

	s.token = login.AccessToken
	s.logger.Info("blur session authenticated", slog.String("wallet", s.walletAddress))
	return s.token, nil
}

// Invalidate drops the cached token. Called when the gateway answers 401;
// the next Token call re-authenticates.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		s.logger.Warn("blur session invalidated")
		s.token = ""
	}
}
