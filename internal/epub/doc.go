// Package epub extracts the title and cover image of an EPUB file.
//
// An EPUB is a zip archive. META-INF/container.xml names the package
// document (OPF); the OPF's <metadata> carries dc:title and its <manifest>
// lists the cover image. The cover is located, in order, by:
//   - the EPUB 3 manifest property "cover-image";
//   - the EPUB 2 <meta name="cover" content="item-id"/> hint;
//   - an image item whose id or href contains "cover".
//
// A file that is not a readable EPUB, or whose package has no title,
// yields an *ExtractionError. A missing cover is not an error.
package epub
