/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package layers

import (
	"fmt"
)

// ErrTransactionTooShort returned when the decoder is handed a buffer
// shorter than one transaction. The frame synchronizer never produces such
// buffers, so hitting this means a broken caller, not a protocol error.
type ErrTransactionTooShort struct {
	Length int
}

func (e ErrTransactionTooShort) Error() string {
	return fmt.Sprintf("Transaction buffer too short: %d bytes, want %d", e.Length, TransactionSize)
}

// ErrBadPackageCount returned when serializing a transaction that does not
// hold exactly NumBasePackages base packages
type ErrBadPackageCount struct {
	Count int
}

func (e ErrBadPackageCount) Error() string {
	return fmt.Sprintf("Transaction must hold %d base packages, got %d", NumBasePackages, e.Count)
}
