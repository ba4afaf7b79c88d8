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

package layout

import (
	"fmt"
)

type ErrBadGroupSize struct {
	Group string
	Size  int
	Want  int
}

func (e ErrBadGroupSize) Error() string {
	return fmt.Sprintf("Channel group %s has %d entries, want %d", e.Group, e.Size, e.Want)
}

type ErrIndexOutOfRange struct {
	Index   int
	NumRows int
}

func (e ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("Channel index %d outside of output row of %d slots", e.Index, e.NumRows)
}

type ErrDuplicateIndex struct {
	Index int
}

func (e ErrDuplicateIndex) Error() string {
	return fmt.Sprintf("Channel index %d assigned to more than one channel", e.Index)
}
