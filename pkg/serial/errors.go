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

package serial

import (
	"fmt"
)

type ErrNoPortName struct{}

func (e ErrNoPortName) Error() string {
	return "Serial port is not specified"
}

type ErrPortNotOpen struct {
	Port string
}

func (e ErrPortNotOpen) Error() string {
	return fmt.Sprintf("Serial port is not open: %s", e.Port)
}
