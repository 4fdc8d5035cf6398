/*
Package library owns the source-image folder: discovering images, building the
canonical-name index and writing files into the folder without ever creating a
second file for an identity that is already present.

# Identity

Two filenames are the same library entry when their naming.CanonicalKey values
match, so "Anime.PNG", "anime.png" and the NFD spelling of an accented name all
collide. A collision is always resolved by skipping the incoming file; the
library never gains "name (2).ext" style variants.

# Writes

Every write rebuilds the Index of the library folder immediately before acting.
Nothing is cached between calls, so edits made by the user in a file manager are
always respected.

	w := library.NewWriter(imagesDir)
	path, collision, err := w.CopyIntoLibrary("/downloads/Cat.PNG")

# Normalization

Normalizer flattens images found in subfolders of the library up to the root as
"<parent>__<file>", moving them through the same collision-checked path.
*/
package library
