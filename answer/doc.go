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


// Package answer implements retrieval-augmented answering over the
// document store.
//
// A question moves through a fixed sequence of stages: embed the
// question, retrieve a widened set of nearest chunks, select the single
// best document, gate on retrieval confidence, then either generate a
// grounded answer from that document's chunks or abstain with a fixed
// decline message. Abstention is a first-class outcome, not an error:
// answering from weak context would fabricate, so the pipeline declines
// instead.
//
// Answers cite exactly one document. Context for generation never mixes
// chunks from different documents.
package answer
