// The lexcrawl command crawls a legislature's code browser and archives
// every law section.
package main
