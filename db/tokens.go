package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/onnwee/spectacles-xix/crypto"
)

// ErrNoSealer is returned when a sealed token is read without a key.
var ErrNoSealer = errors.New("token is encrypted but ENCRYPTION_KEY is not configured")

// SaveToken stores the token for provider, sealing it when a Sealer is set.
func (s *Store) SaveToken(ctx context.Context, provider string, tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("save token %s: nil token", provider)
	}
	access, refresh := tok.AccessToken, tok.RefreshToken
	version, keyID := 0, ""
	if s.Sealer != nil {
		var err error
		if access, err = s.Sealer.Seal(access); err != nil {
			return fmt.Errorf("seal access token: %w", err)
		}
		if refresh, err = s.Sealer.Seal(refresh); err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
		version, keyID = crypto.Version, s.Sealer.KeyID()
	}
	scope, _ := tok.Extra("scope").(string)

	q := `INSERT INTO oauth_tokens(provider, access_token, refresh_token, expires_at, scope, encryption_version, encryption_key_id, updated_at)
		  VALUES($1,$2,$3,$4,$5,$6,$7,NOW())
		  ON CONFLICT(provider) DO UPDATE SET
		    access_token=EXCLUDED.access_token,
		    refresh_token=EXCLUDED.refresh_token,
		    expires_at=EXCLUDED.expires_at,
		    scope=COALESCE(NULLIF(EXCLUDED.scope, ''), oauth_tokens.scope),
		    encryption_version=EXCLUDED.encryption_version,
		    encryption_key_id=EXCLUDED.encryption_key_id,
		    updated_at=NOW()`
	if _, err := s.DB.ExecContext(ctx, q, provider, access, refresh, tok.Expiry, scope, version, keyID); err != nil {
		return fmt.Errorf("save token %s: %w", provider, err)
	}
	return nil
}

// LoadToken returns the stored token for provider, or nil when none exists.
func (s *Store) LoadToken(ctx context.Context, provider string) (*oauth2.Token, error) {
	var (
		access, refresh, scope sql.NullString
		expiry                 sql.NullTime
		version                int
		keyID                  sql.NullString
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, scope, COALESCE(encryption_version, 0), encryption_key_id
		 FROM oauth_tokens WHERE provider = $1`, provider).
		Scan(&access, &refresh, &expiry, &scope, &version, &keyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load token %s: %w", provider, err)
	}

	a, r := access.String, refresh.String
	if version == crypto.Version {
		if s.Sealer == nil {
			return nil, ErrNoSealer
		}
		if keyID.Valid && keyID.String != "" && keyID.String != s.Sealer.KeyID() {
			return nil, fmt.Errorf("token %s sealed with key %s, configured key is %s", provider, keyID.String, s.Sealer.KeyID())
		}
		if a, err = s.Sealer.Open(a); err != nil {
			return nil, fmt.Errorf("open access token: %w", err)
		}
		if r, err = s.Sealer.Open(r); err != nil {
			return nil, fmt.Errorf("open refresh token: %w", err)
		}
	}

	tok := &oauth2.Token{AccessToken: a, RefreshToken: r, TokenType: "Bearer"}
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	if scope.String != "" {
		tok = tok.WithExtra(map[string]any{"scope": scope.String})
	}
	return tok, nil
}

// SealReport summarizes a SealPlaintextTokens pass.
type SealReport struct {
	Found  int
	Sealed int
	Failed int
}

// SealPlaintextTokens rewrites every plaintext token row with the store's
// Sealer. With dryRun it only counts the rows.
func (s *Store) SealPlaintextTokens(ctx context.Context, dryRun bool) (SealReport, error) {
	var rep SealReport
	if s.Sealer == nil {
		return rep, errors.New("seal tokens: no encryption key configured")
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT provider, COALESCE(access_token, ''), COALESCE(refresh_token, '')
		 FROM oauth_tokens WHERE COALESCE(encryption_version, 0) = 0 ORDER BY provider`)
	if err != nil {
		return rep, fmt.Errorf("query plaintext tokens: %w", err)
	}
	type plain struct{ provider, access, refresh string }
	var todo []plain
	for rows.Next() {
		var p plain
		if err := rows.Scan(&p.provider, &p.access, &p.refresh); err != nil {
			rows.Close()
			return rep, fmt.Errorf("scan token row: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rep, fmt.Errorf("iterate token rows: %w", err)
	}
	rep.Found = len(todo)

	for i, p := range todo {
		logger := s.Logger.With(
			slog.String("provider", p.provider),
			slog.Int("index", i+1),
			slog.Int("total", len(todo)))
		if dryRun {
			logger.Info("would seal token (dry-run)")
			continue
		}
		if err := s.sealRow(ctx, p.provider, p.access, p.refresh); err != nil {
			logger.Error("failed to seal token", slog.Any("error", err))
			rep.Failed++
			continue
		}
		logger.Info("sealed token")
		rep.Sealed++
	}
	if rep.Failed > 0 {
		return rep, fmt.Errorf("sealing finished with %d errors", rep.Failed)
	}
	return rep, nil
}

func (s *Store) sealRow(ctx context.Context, provider, access, refresh string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	sa, err := s.Sealer.Seal(access)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	sr, err := s.Sealer.Seal(refresh)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE oauth_tokens
		 SET access_token = $1, refresh_token = $2, encryption_version = $3, encryption_key_id = $4, updated_at = NOW()
		 WHERE provider = $5 AND COALESCE(encryption_version, 0) = 0`,
		sa, sr, crypto.Version, s.Sealer.KeyID(), provider)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n != 1 {
		return fmt.Errorf("expected 1 row updated, got %d (token changed concurrently)", n)
	}
	return tx.Commit()
}

// TokenStatus counts token rows per encryption_version.
func (s *Store) TokenStatus(ctx context.Context) (map[int]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT COALESCE(encryption_version, 0), COUNT(*) FROM oauth_tokens GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("query token status: %w", err)
	}
	defer rows.Close()
	out := map[int]int{}
	for rows.Next() {
		var version, count int
		if err := rows.Scan(&version, &count); err != nil {
			return nil, fmt.Errorf("scan token status: %w", err)
		}
		out[version] = count
	}
	return out, rows.Err()
}

