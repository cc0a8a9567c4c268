package domain

import "time"

// EffectiveDailyCount returns the free-quota usage that counts against today.
// A counter last reset on a prior UTC calendar day is logically zero; the lazy
// reset happens at commit time, never here.
func EffectiveDailyCount(account Account, now time.Time) int {
	if !SameUTCDay(account.LastDailyReset, now) {
		return 0
	}
	return account.DailyGenerations
}

// SameUTCDay reports whether both instants fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
