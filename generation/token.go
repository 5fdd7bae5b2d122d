package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DeriveToken computes the deterministic per-(team, task) generation token:
// the SHA-224 digest of "team:<team_seed>,task:<task_seed>,glob:<global_seed>;"
// as lowercase hex. The token keys the instance cache and is embedded in
// generated artifact paths, so its unguessability is what keeps one team
// from addressing another team's instance.
func DeriveToken(teamSeed, taskSeed, globalSeed string) string {
	payload := fmt.Sprintf("team:%s,task:%s,glob:%s;", teamSeed, taskSeed, globalSeed)
	digest := sha256.Sum224([]byte(payload))
	return hex.EncodeToString(digest[:])
}
