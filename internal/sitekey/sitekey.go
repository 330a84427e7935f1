// ABOUTME: Per-installation secret that gates the local oEmbed endpoint.
// ABOUTME: Generated lazily on first use, persisted as a site option, compared in constant time.

package sitekey

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/2389/wpembed/internal/store"
)

// OptionName is the site option the key is stored under.
const OptionName = "wpdotorg_oembed_key"

// OptionStore is the slice of the store the keeper needs.
type OptionStore interface {
	GetOption(ctx context.Context, name string) (string, error)
	AddOption(ctx context.Context, name, value string) (bool, error)
	DeleteOption(ctx context.Context, name string) error
}

// Keeper resolves the site key, creating it on first use.
type Keeper struct {
	options OptionStore
	now     func() time.Time
	randInt func() (int64, error)
}

func NewKeeper(options OptionStore) *Keeper {
	return &Keeper{
		options: options,
		now:     time.Now,
		randInt: randomInt,
	}
}

// Key returns the persisted site key, generating and storing one if none exists.
// Concurrent first calls converge on whichever value reached the store first.
func (k *Keeper) Key(ctx context.Context) (string, error) {
	key, err := k.options.GetOption(ctx, OptionName)
	switch {
	case err == nil && key != "":
		return key, nil
	case err != nil && !errors.Is(err, store.ErrOptionNotFound):
		return "", fmt.Errorf("read site key: %w", err)
	}

	candidate, err := k.generate()
	if err != nil {
		return "", err
	}
	if _, err := k.options.AddOption(ctx, OptionName, candidate); err != nil {
		return "", fmt.Errorf("store site key: %w", err)
	}

	key, err = k.options.GetOption(ctx, OptionName)
	if err != nil {
		return "", fmt.Errorf("re-read site key: %w", err)
	}
	return key, nil
}

// Matches reports whether candidate is exactly the site key.
func (k *Keeper) Matches(ctx context.Context, candidate string) (bool, error) {
	key, err := k.Key(ctx)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1, nil
}

// Reset clears the stored key; the next Key call generates a fresh one.
func (k *Keeper) Reset(ctx context.Context) error {
	if err := k.options.DeleteOption(ctx, OptionName); err != nil {
		return fmt.Errorf("delete site key: %w", err)
	}
	return nil
}

// generate hashes the current unix time with a random number in [0, 65535].
func (k *Keeper) generate() (string, error) {
	n, err := k.randInt()
	if err != nil {
		return "", fmt.Errorf("generate site key: %w", err)
	}
	seed := strconv.FormatInt(k.now().Unix(), 10) + strconv.FormatInt(n, 10)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:]), nil
}

func randomInt() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(65536))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
