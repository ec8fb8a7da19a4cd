package impl

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/store"
)

const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30
	totpSkew        = 1
)

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type TOTPServiceImpl struct {
	store  *store.Store
	issuer string
	now    func() time.Time
	log    *slog.Logger
}

func NewTOTPServiceImpl(st *store.Store, issuer string, logger *slog.Logger) *TOTPServiceImpl {
	return &TOTPServiceImpl{store: st, issuer: issuer, now: utcNow, log: orDefault(logger)}
}

func (t *TOTPServiceImpl) IsEnabled(user *domain.User) bool { return user.TOTPEnabled() }

// Verify checks code against the time steps around now (one step either side).
func (t *TOTPServiceImpl) Verify(secret, code string, now time.Time) bool {
	key, err := decodeSecret(secret)
	if err != nil {
		return false
	}
	code = strings.TrimSpace(code)
	if len(code) != totpDigits {
		return false
	}
	base := now.Unix() / totpPeriod
	ok := 0
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		// no early exit: all windows are compared
		ok |= subtle.ConstantTimeCompare([]byte(hotp(key, uint64(counter))), []byte(code))
	}
	return ok == 1
}

func (t *TOTPServiceImpl) GenerateSecret(account string) (string, string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	secret := totpEncoding.EncodeToString(raw)
	return secret, t.provisionURI(secret, account), nil
}

func (t *TOTPServiceImpl) provisionURI(secret, account string) string {
	label := url.PathEscape(t.issuer + ":" + account)
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", t.issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", strconv.Itoa(totpDigits))
	v.Set("period", strconv.Itoa(totpPeriod))
	return "otpauth://totp/" + label + "?" + v.Encode()
}

// BeginEnrollment stores a new pending secret. It is not used for login
// until ConfirmEnrollment sees a correct code.
func (t *TOTPServiceImpl) BeginEnrollment(ctx context.Context, userID domain.UserID) (*dto.TotpSetupResponse, error) {
	user, err := t.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrUserNotFound)
	}
	if user.TOTPEnabled() {
		return nil, domain.ErrTotpAlreadyEnabled
	}
	account := user.EmailAddress()
	if account == "" {
		account = user.ID.String()
	}
	secret, uri, err := t.GenerateSecret(account)
	if err != nil {
		return nil, err
	}
	if err := t.store.Users().SetTOTPSecret(ctx, userID, secret, t.now()); err != nil {
		return nil, notFoundAs(err, domain.ErrUserNotFound)
	}
	return &dto.TotpSetupResponse{Secret: secret, OtpauthURL: uri}, nil
}

func (t *TOTPServiceImpl) ConfirmEnrollment(ctx context.Context, userID domain.UserID, code string) error {
	user, err := t.store.Users().GetByID(ctx, userID)
	if err != nil {
		return notFoundAs(err, domain.ErrUserNotFound)
	}
	if user.TOTPEnabled() {
		return domain.ErrTotpAlreadyEnabled
	}
	if user.TOTPSecret == nil {
		return domain.ErrTotpNotEnrolled
	}
	now := t.now()
	if !t.Verify(*user.TOTPSecret, code, now) {
		return domain.ErrInvalidTotpCode
	}
	if err := t.store.Users().EnableTOTP(ctx, userID, now); err != nil {
		return notFoundAs(err, domain.ErrTotpNotEnrolled)
	}
	t.log.Info("totp enabled", append([]any{"user_id", userID}, requestAttrs(ctx)...)...)
	return nil
}

func (t *TOTPServiceImpl) Disable(ctx context.Context, userID domain.UserID, code string) error {
	user, err := t.store.Users().GetByID(ctx, userID)
	if err != nil {
		return notFoundAs(err, domain.ErrUserNotFound)
	}
	if !user.TOTPEnabled() {
		return domain.ErrTotpNotEnrolled
	}
	now := t.now()
	if !t.Verify(*user.TOTPSecret, code, now) {
		return domain.ErrInvalidTotpCode
	}
	if err := t.store.Users().DisableTOTP(ctx, userID, now); err != nil {
		return notFoundAs(err, domain.ErrUserNotFound)
	}
	t.log.Info("totp disabled", append([]any{"user_id", userID}, requestAttrs(ctx)...)...)
	return nil
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimRight(strings.TrimSpace(secret), "="))
	key, err := totpEncoding.DecodeString(s)
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// hotp computes the RFC 4226 code for counter.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	return fmt.Sprintf("%0*d", totpDigits, bin%1_000_000)
}
