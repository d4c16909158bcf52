/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists templates locally.
//
// A draft is a single JSON template file saved transactionally (temp file plus
// rename) with a timestamped backup of the previous content under
// <dir>/.pd/backups. SQLStore keeps templates, published versions, the audit
// trail and uploaded assets in SQLite or Postgres and implements the
// persistence collaborator used by the lifecycle service and the HTTP backend.
package storage
