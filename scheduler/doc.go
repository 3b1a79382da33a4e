// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scheduler provides a worker pool for expensive, pure comparison
// work.
//
// Work is addressed by strategy name. Each registered strategy owns a pool of
// execution contexts created by its Factory; contexts are reused across tasks,
// destroyed by Terminate, and evicted after the strategy has been idle for the
// configured duration. A task is a name plus a plain byte payload, so no
// caller state is shared with the execution context.
//
// The scheduler starts tasks in submission order and never runs more than
// the configured number at once. Execution errors and panics reject only the
// affected task; the context returns to the pool.
package scheduler
