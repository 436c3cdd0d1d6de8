// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package proof

import (
	"fmt"

	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
)

// BoundReason is the Sorry reason BoundDepth leaves at the cut points.
func BoundReason(bound int) string {
	return fmt.Sprintf("bound %d hit", bound)
}

// BoundDepth replaces every node at depth bound with a childless
// Sorry(BoundReason(bound)) leaf that keeps the node's payload. The root has
// depth 0, so a bound of 0 replaces the whole proof. Lazy.
func BoundDepth[I any](bound int, p *Proof[I]) *Proof[I] {
	reason := BoundReason(bound)
	return ltree.Truncate(p, bound, func(node *Proof[I]) *Proof[I] {
		return NewSorry(reason, node.Value.Info)
	})
}
