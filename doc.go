// lakekit contains the interfaces, helper types, and documentation for
// building a dimensional parquet data lake out of raw, semi-structured
// records. The jukebox subpackage is the flagship pipeline: it turns a music
// streaming app's song metadata and play logs into a star schema on object
// storage.
//
// Every lake build moves data through the same stages. Interfaces and basic
// implementations for each stage live here; implementations which rely on
// other software (S3, Kafka, boltdb, leveldb) are in subpackages.
//
// 1. Source
//
//    Raw data lives everywhere - S3 buckets, local directories, Kafka topics,
//    hard-coded in tests. A lakekit.RawSource hands out whole objects one
//    reader at a time (the natural unit for files in a bucket), while a
//    lakekit.Source hands out single records (the natural unit for streams).
//    Sources only fetch; decoding the bytes into something typed is the next
//    stage's problem, so one decoder can serve many sources and the two
//    stages can scale independently.
//
// 2. Records
//
//    Each pipeline declares the concrete record types it understands (for
//    jukebox: song metadata records and play events) and decodes source
//    bytes into them. A record that won't decode is counted and skipped -
//    one bad line in a multi-gigabyte log prefix is not a reason to abandon
//    a build.
//
// 3. Builders
//
//    Builders fold typed records into the rows of the lake's tables:
//    deduplicating dimensions, deriving time breakdowns, joining facts
//    against dimension lookups, and assigning ids. Id assignment uses either
//    a RangeNexter (fresh block-allocated ids per run) or a Translator
//    (persistent natural-key to id mapping, for stable ids and streaming
//    dedup).
//
// 4. Writer and Store
//
//    The parquet subpackage writes finished rows as hive-partitioned,
//    snappy-compressed parquet part files, and a lakekit.Store (local
//    directory or S3 bucket) is where those parts land. Batch runs overwrite
//    a table's prefix; streaming runs append new parts.
package lakekit
