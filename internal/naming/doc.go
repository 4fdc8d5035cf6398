// Package naming holds the canonical naming rules for the icon library.
//
// Every identity comparison in the library goes through CanonicalKey, which
// NFC-normalizes a filename and applies full Unicode case folding, so that
// "Anime.PNG" and "anime.png", or the NFC and NFD spellings of "café.png",
// name the same library entry. The functions here are pure: they never touch
// the filesystem and never invent suffixed variants such as "name (2).png".
package naming
