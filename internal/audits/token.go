package audits

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ProofToken derives the opaque token for a result by digesting its fields.
//
// This is a placeholder, not a security construct: it provides a stable,
// reproducible identifier for downstream consumers but no unforgeability and
// no zero-knowledge property. A real proof backend replaces this wholesale.
func ProofToken(result *AuditResult) string {
	canonical := fmt.Sprintf("%s|%s|%d|%t|%s",
		result.SubjectID,
		result.PolicyID,
		result.EvaluationTime,
		result.Compliant,
		strings.Join(result.Reasons, ";"),
	)
	sum := sha3.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
