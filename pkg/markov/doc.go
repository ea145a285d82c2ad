/*
Package markov provides a small toolkit for building, persisting, and sampling
first-order Markov chain models over the words of a text corpus.

A Model is trained once from a word sequence (see Create and Train), after
which it is immutable. PredictWord samples a successor of a word weighted by
how often that successor was observed, and Continue repeats that to extend a
seed phrase. Models can be written to compact CBOR files with Save and
SaveFile, or kept by name in a SQLite database through a Store.
*/
package markov
