// Package wheel draws spin outcomes from the economy's weighted wheel and
// prices them in coins.
package wheel

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

const (
	Jackpot   = "jackpot"
	BonusSpin = "bonusSpin"
	TryAgain  = "tryAgain"
)

// Source yields uniform integers in [0, n).
type Source interface {
	Int64N(n int64) int64
}

// Labels returns the wheel's outcome labels in draw order.
func Labels(weights map[string]int64) []string {
	labels := make([]string, 0, len(weights))
	for label := range weights {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Resolve draws one outcome with probability weight/total.
func Resolve(weights map[string]int64, src Source) (string, error) {
	labels := Labels(weights)
	var total int64
	for _, label := range labels {
		w := weights[label]
		if w < 0 {
			return "", fmt.Errorf("%w: negative weight for %q", domain.ErrConfig, label)
		}
		total += w
	}
	if total == 0 {
		return "", fmt.Errorf("%w: total wheel weight is zero", domain.ErrConfig)
	}

	remaining := src.Int64N(total) + 1
	for _, label := range labels {
		remaining -= weights[label]
		if remaining <= 0 {
			return label, nil
		}
	}
	return labels[len(labels)-1], nil
}

// Coins prices an outcome: numeric labels multiply the base spin reward,
// the jackpot pays the configured jackpot, non-monetary outcomes pay zero.
func Coins(outcome string, rewards domain.Rewards) int64 {
	switch outcome {
	case Jackpot:
		return rewards.Jackpot
	case BonusSpin, TryAgain:
		return 0
	}
	n, err := strconv.ParseInt(outcome, 10, 64)
	if err != nil {
		return rewards.Spin.Base
	}
	coins := rewards.Spin.Base * n
	if rewards.Spin.Max > 0 {
		coins = min(max(coins, rewards.Spin.Min), rewards.Spin.Max)
	}
	return coins
}

type cryptoSource struct{}

// CryptoSource draws from crypto/rand so outcomes cannot be predicted from
// earlier spins.
func CryptoSource() Source {
	return cryptoSource{}
}

func (cryptoSource) Int64N(n int64) int64 {
	if n <= 0 {
		panic("wheel: invalid argument to Int64N")
	}
	// rejection sampling keeps the draw unbiased
	limit := (1<<63 - 1) - (1<<63-1)%uint64(n)
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("wheel: crypto/rand failed: %v", err))
		}
		v := binary.BigEndian.Uint64(buf[:]) >> 1
		if v < limit {
			return int64(v % uint64(n))
		}
	}
}
