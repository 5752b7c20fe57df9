// File: core/irq/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package irq provides the two synchronization primitives the core is allowed
// to use across interrupt priorities: hardware atomics, when the target has
// them, and a brief interrupt-masking critical section otherwise.
//
// On the host the interrupt mask is modelled by a single global spinlock, which
// gives the same mutual exclusion a masked single-core MCU gets. Critical
// sections must be short and must not nest.
package irq
