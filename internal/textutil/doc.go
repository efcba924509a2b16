// Package textutil builds term-frequency fingerprints of meeting text and
// compares them with cosine similarity.
//
// Tokenization lowercases text, splits on non-alphanumeric runs, and drops
// tokens shorter than three characters along with common filler words, so
// two passages only score as similar when they share content vocabulary.
package textutil
