// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package board

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/pick-a-box/models"
)

// Seed builds a fresh board. With no secrets the boxes get 1..n; otherwise
// n is ignored and the given secrets are dealt out. Either way the order is
// a uniform random permutation.
func Seed(n int, secrets []int, rng *rand.Rand, now time.Time) models.Board {
	if len(secrets) == 0 {
		secrets = sequence(n)
	} else {
		secrets = append([]int(nil), secrets...)
	}
	Shuffle(secrets, rng)

	boxes := make([]models.Box, len(secrets))
	for i, secret := range secrets {
		boxes[i] = models.Box{
			ID:     uuid.NewString(),
			Secret: secret,
		}
	}
	return models.Board{Boxes: boxes, UpdatedAt: now}
}

// Shuffle permutes values in place with Fisher-Yates.
func Shuffle(values []int, rng *rand.Rand) {
	for i := len(values) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}

// Move removes the box at from and reinserts it at to.
// [A B C D] moved 0 -> 2 becomes [B C A D].
func Move(boxes []models.Box, from, to int) []models.Box {
	if from == to {
		return boxes
	}
	box := boxes[from]
	boxes = append(boxes[:from], boxes[from+1:]...)
	boxes = append(boxes[:to], append([]models.Box{box}, boxes[to:]...)...)
	return boxes
}

// Remove deletes the box at index, shifting later boxes down
func Remove(boxes []models.Box, index int) []models.Box {
	return append(boxes[:index], boxes[index+1:]...)
}

// ResetClaims clears claim data but keeps ids and secrets
func ResetClaims(b *models.Board) {
	for i := range b.Boxes {
		b.Boxes[i].Claimed = false
		b.Boxes[i].Name = nil
		b.Boxes[i].ClaimantRef = nil
		b.Boxes[i].ClaimedAt = nil
	}
	b.Round++
}

func indexOf(b models.Board, boxID string) int {
	for i, box := range b.Boxes {
		if box.ID == boxID {
			return i
		}
	}
	return -1
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func decodeBoard(body []byte) (models.Board, error) {
	var b models.Board
	if err := json.Unmarshal(body, &b); err != nil {
		return models.Board{}, fmt.Errorf("decode board: %w", err)
	}
	if b.Boxes == nil {
		b.Boxes = []models.Box{}
	}
	return b, nil
}
