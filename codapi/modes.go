package codapi

import "strings"

// gameModes maps raw playlist codes to the labels shown in chat. Unknown
// codes pass through unchanged.
var gameModes = map[string]string{
	"br_brquads":          "Battle Royale Quads",
	"br_brtrios":          "Battle Royale Trios",
	"br_brduos":           "Battle Royale Duos",
	"br_brsolo":           "Battle Royale Solos",
	"br_vg_royale_quads":  "Vanguard Royale Quads",
	"br_vg_royale_trio":   "Vanguard Royale Trios",
	"br_vg_royale_duo":    "Vanguard Royale Duos",
	"br_vg_royale_solo":   "Vanguard Royale Solos",
	"br_dmz_plunquad":     "Plunder Quads",
	"br_dmz_pluntrio":     "Plunder Trios",
	"br_dmz_plunduo":      "Plunder Duos",
	"br_dmz_plunsolo":     "Plunder Solos",
	"br_buy_back_quads":   "Buyback Quads",
	"br_buy_back_trios":   "Buyback Trios",
	"br_buy_back_duos":    "Buyback Duos",
	"br_buy_back_solos":   "Buyback Solos",
	"br_rebirth_rbrthquad":  "Resurgence Quads",
	"br_rebirth_rbrthtrios": "Resurgence Trios",
	"br_rebirth_rbrthduos":  "Resurgence Duos",
	"br_rebirth_rbrthsolos": "Resurgence Solos",
	"br_rebirth_reverse_playlist_wz325/rbrthsolos": "Rebirth Reverse",
	"br_rebirth_reverse_playlist_wz325/rbrthduos":  "Rebirth Reverse",
	"br_rebirth_reverse_playlist_wz325/rbrthtrios": "Rebirth Reverse",
	"br_rebirth_reverse_playlist_wz325/rbrthquads": "Rebirth Reverse",
	"br_rumble_clash_caldera":                      "Clash",
	"br_dmz_playlist_wz325/rbrthbmo_quads":         "Rebirth Reinforced Quads",
	"br_dmz_playlist_wz325/rbrthbmo_trios":         "Rebirth Reinforced Trios",
	"br_dmz_playlist_wz325/rbrthbmo_duos":          "Rebirth Reinforced Duos",
	"br_dmz_playlist_wz325/rbrthbmo_solos":         "Rebirth Reinforced Solos",
	"br_dbd_playlist_wz330/cal_iron_quads":         "Caldera Iron Trial Quads",
	"br_dbd_playlist_wz330/cal_iron_trios":         "Caldera Iron Trial Trios",
	"br_dbd_playlist_wz330/cal_iron_duos":          "Caldera Iron Trial Duos",
	"br_dbd_playlist_wz330/cal_iron_solos":         "Caldera Iron Trial Solos",
	"br_mendota_playlist_wz330":                    "Operation Monarch",
	"br_mendota_playlist_wz330/op_mon":             "Monarch Quads",
}

// ModeLabel returns the display label for a raw game-mode code.
func ModeLabel(code string) string {
	if label, ok := gameModes[code]; ok {
		return label
	}
	return code
}

// GulagApplies reports whether the gulag mechanic exists in the given mode.
// Resurgence and Rebirth playlists respawn players without a gulag round.
func GulagApplies(modeLabel string) bool {
	return !strings.Contains(modeLabel, "Resurgence") && !strings.Contains(modeLabel, "Rebirth")
}
