/*
 * This file is part of Matilda Voice (https://github.com/matildalabs/matilda-voice).
 * Copyright (C) 2025 Matilda Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package providers

import "github.com/matildalabs/matilda-voice/internal/tts"

// Factories returns the full backend table keyed by canonical provider
// name. Construction is lazy; listing providers never hits the network.
func Factories() map[string]tts.Factory {
	return map[string]tts.Factory{
		"azure_tts":  NewAzureProvider,
		"edge_tts":   NewEdgeProvider,
		"openai_tts": NewOpenAIProvider,
		"elevenlabs": NewElevenLabsProvider,
		"google_tts": NewGoogleProvider,
		"chatterbox": NewChatterboxProvider,
		"system":     NewSystemProvider,
		"hub":        NewHubProvider,
	}
}
