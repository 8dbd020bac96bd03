package cmd

// Data dictionary queries. All relation names are bound as parameters in
// dictionary (upper case) form; generated DDL goes through the statement
// builders in relation.go instead.

const tableExistsSQL = `
SELECT COUNT(*)
FROM user_tables
WHERE table_name = :1
`

const tableIsPartitionedSQL = `
SELECT COUNT(*)
FROM user_part_tables
WHERE table_name = :1
`

const tablePartitionsSQL = `
SELECT partition_name, high_value, partition_position
FROM user_tab_partitions
WHERE table_name = :1
ORDER BY partition_position
`

const tableColumnsSQL = `
SELECT column_name, data_type, data_length, NVL(data_precision, -1), NVL(data_scale, -1), nullable
FROM user_tab_columns
WHERE table_name = :1
ORDER BY column_id
`

const partitionKeyColumnsSQL = `
SELECT column_name
FROM user_part_key_columns
WHERE object_type = 'TABLE' AND name = :1
ORDER BY column_position
`

const tableIndexesSQL = `
SELECT index_name, status, partitioned
FROM user_indexes
WHERE table_name = :1
ORDER BY index_name
`

const indexPartitionsSQL = `
SELECT p.index_name, p.partition_name, p.status
FROM user_ind_partitions p
	JOIN user_indexes i ON i.index_name = p.index_name
WHERE i.table_name = :1
ORDER BY p.index_name, p.partition_position
`

const indexSegmentsSQL = `
SELECT COUNT(i.index_name), NVL(SUM(s.bytes), 0)
FROM user_indexes i
	LEFT JOIN user_segments s ON s.segment_name = i.index_name
WHERE i.table_name = :1
`

const partitionSegmentSizeSQL = `
SELECT NVL(SUM(bytes), 0)
FROM user_segments
WHERE segment_name = :1 AND partition_name = :2
`

const partitionCompressionSQL = `
SELECT compression, NVL(compress_for, 'NONE')
FROM user_tab_partitions
WHERE table_name = :1 AND partition_name = :2
`
