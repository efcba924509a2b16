// Package language normalizes the meeting language setting into the ISO 639-1
// code transcription backends expect. It accepts two- and three-letter codes,
// English language names, and BCP 47 tags such as "pt-BR".
package language
