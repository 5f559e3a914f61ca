/*
Package snapshot bundles a directory of checkpoint files into a
single (optionally compressed) archive and restores it back. Meant
for taking a backup of a checkpoint directory before destructive
operations.

Each entry carries its own CRC-32 checksum; List and Extract verify
them and report corruption via checksumfile.ErrCorrupted.
*/
package snapshot
