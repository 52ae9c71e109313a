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

// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without an AI service and give them deterministic
// behavior.
//
// # Usage in Tests
//
//	summarizer := mock.NewMockSummarizer()
//	summarizer.SummarizeFunc = func(ctx context.Context, transcript string) (string, error) {
//	    return "fixed", nil
//	}
//	provider := mock.NewMockProviderWithSummarizer(summarizer)
//
//	count := summarizer.CallCount()
//
// # Default Behavior
//
// MockSummarizer returns the first words of the transcript, so summaries
// are predictable in assertions.
package mock
