// Package orphans removes generated icons whose source image has gone.
//
// An icon is an orphan when its stem, with the configured suffix stripped,
// matches no image at the top level of the images folder. Orphans are
// deleted, or moved into the "_Orphans" folder inside the icons folder where
// repeated names are numbered "name (2).ico".
package orphans
