package catalog

// The queries below mirror what psql -E prints for \d+, \di+ and \dtvmsE+.

func listObjectsQuery(filter string) string {
	return `select
    n.nspname as "Schema",
    c.relname as "Name",
    case c.relkind
        when 'r' then 'table'
        when 'v' then 'view'
        when 'm' then 'materialized view'
        when 'S' then 'sequence'
        when 't' then 'TOAST table'
        when 'f' then 'foreign table'
        when 'p' then 'partitioned table'
    end as "Type",
    pg_catalog.pg_get_userbyid(c.relowner) as "Owner",
    case c.relpersistence
        when 'p' then 'permanent'
        when 't' then 'temporary'
        when 'u' then 'unlogged'
    end as "Persistence",
    am.amname as "Access method",
    pg_catalog.pg_size_pretty(pg_catalog.pg_table_size(c.oid)) as "Size",
    pg_catalog.obj_description(c.oid, 'pg_class') as "Description"
from pg_catalog.pg_class c
    left join pg_catalog.pg_namespace n on n.oid = c.relnamespace
    left join pg_catalog.pg_am am on am.oid = c.relam
where
    c.relkind in ('r', 'p', 't', 'v', 'm', 's', 'S', 'f')
    ` + filter + `
order by 1, 2;`
}

func listIndexesQuery(filter string) string {
	return `select
    n.nspname as "Schema",
    c.relname as "Name",
    case c.relkind
        when 'i' then 'index'
        when 'I' then 'partitioned index'
    end as "Type",
    pg_catalog.pg_get_userbyid(c.relowner) as "Owner",
    c2.relname as "Table",
    case c.relpersistence
        when 'p' then 'permanent'
        when 't' then 'temporary'
        when 'u' then 'unlogged'
    end as "Persistence",
    am.amname as "Access method",
    pg_catalog.pg_size_pretty(pg_catalog.pg_table_size(c.oid)) as "Size",
    pg_catalog.obj_description(c.oid, 'pg_class') as "Description"
from pg_catalog.pg_class c
left join pg_catalog.pg_namespace n on n.oid = c.relnamespace
left join pg_catalog.pg_am am on am.oid = c.relam
left join pg_catalog.pg_index i on i.indexrelid = c.oid
left join pg_catalog.pg_class c2 on i.indrelid = c2.oid
where
    c.relkind in ('i', 'I')
    ` + filter + `
order by 1, 2;`
}

func describeRelationQuery(schema, relation string) string {
	rel := QuoteLiteral(relation)
	return `with
    index_columns as (
        select i.indexrelid, c.oid as rel_oid, unnest(i.indkey) as attnum
        from pg_catalog.pg_index i
        join pg_catalog.pg_class c on c.oid = i.indrelid
        where c.relname = ` + rel + `
    ),
    index_column_counts as (
        select rel_oid, attnum, count(*) as cnt
        from index_columns
        group by 1, 2
    ),
    constraint_columns as (
        select con.oid, c.oid as rel_oid, unnest(con.conkey) as attnum
        from pg_catalog.pg_constraint con
        join pg_catalog.pg_class c on con.conrelid = c.oid
        where c.relname = ` + rel + `
    ),
    constraint_column_counts as (
        select rel_oid, attnum, count(*) as cnt
        from constraint_columns
        group by 1, 2
    ),
    fkey_columns as (
        select
            src.relname as src_name,
            src.relnamespace::regnamespace as src_schema,
            c.oid as rel_oid,
            unnest(con.confkey) as attnum
        from pg_catalog.pg_constraint con
        join pg_catalog.pg_class c on con.confrelid = c.oid
        join pg_catalog.pg_class src on con.conrelid = src.oid
        where c.relname = ` + rel + `
    ),
    fkey_references as (
        select
            rel_oid,
            attnum,
            string_agg(src_schema || '.' || src_name, ', ') as sources
        from fkey_columns
        group by 1, 2
    )
select
    a.attname as "Column",
    pg_catalog.format_type(a.atttypid, a.atttypmod) as "Type",
    coll.collname as "Collation",
    case when a.attnotnull is true then 'not null' else '' end as "Nullable",
    pg_catalog.pg_get_expr(d.adbin, d.adrelid, true) as "Default",
    case a.attstorage
        when 'p' then 'plain'
        when 'x' then 'extended'
        when 'e' then 'external'
        when 'm' then 'main'
        else a.attstorage::text
    end as "Storage",
    case a.attcompression
        when 'p' then 'pglz'
        when 'l' then 'LZ4'
        else a.attcompression::text
    end as "Compression",
    case when a.attstattarget = -1 then null else a.attstattarget end as "Stats target",
    case when index_column_counts.cnt > 0 then true else false end as "Has Index",
    case when constraint_column_counts.cnt > 0 then true else false end as "Has Constraint",
    fkey_references.sources as "Referenced by",
    pg_catalog.col_description(a.attrelid, a.attnum) as "Description"
from pg_catalog.pg_attribute a
join pg_catalog.pg_class c on a.attrelid = c.oid
left join pg_catalog.pg_namespace n on n.oid = c.relnamespace
left join pg_catalog.pg_collation coll on coll.oid = a.attcollation
left join pg_catalog.pg_type t
    on (t.oid = a.atttypid and t.typcollation <> a.attcollation)
left join pg_catalog.pg_attrdef d
    on (a.attrelid = d.adrelid and a.attnum = d.adnum and a.atthasdef)
left join index_column_counts
    on a.attnum = index_column_counts.attnum
    and a.attrelid = index_column_counts.rel_oid
left join constraint_column_counts
    on a.attnum = constraint_column_counts.attnum
    and a.attrelid = constraint_column_counts.rel_oid
left join fkey_references
    on a.attnum = fkey_references.attnum
    and a.attrelid = fkey_references.rel_oid
where
    c.relname = ` + rel + `
    and n.nspname = ` + QuoteLiteral(schema) + `
    and a.attnum > 0
    and not a.attisdropped
order by a.attnum`
}

func describeIndexesQuery(schema, relation string) string {
	rel := QuoteLiteral(relation)
	return `with
    index_columns as (
        select i.indexrelid, c.oid as rel_oid, unnest(i.indkey) as attnum
        from pg_catalog.pg_index i
        join pg_catalog.pg_class c on c.oid = i.indrelid
        where c.relname = ` + rel + `
    ),
    index_column_names as (
        select
            index_columns.indexrelid,
            string_agg(pg_attribute.attname, ', ') as columns
        from index_columns
        join pg_catalog.pg_attribute
            on index_columns.rel_oid = pg_attribute.attrelid
            and index_columns.attnum = pg_attribute.attnum
        group by 1
    )
select
    c.relname as "Table",
    i.indexrelid::regclass::text as "Index Name",
    pg_am.amname as "Index Type",
    index_column_names.columns as "Columns",
    i.indisprimary as "Is PK",
    i.indisunique as "Is Unique",
    i.indisclustered as "Is Clustered",
    i.indisvalid as "Is Valid"
from pg_catalog.pg_index i
join pg_catalog.pg_class c on c.oid = i.indrelid
left join pg_catalog.pg_namespace n on n.oid = c.relnamespace
join pg_catalog.pg_class ic on i.indexrelid = ic.oid
join pg_catalog.pg_am on ic.relam = pg_am.oid
left join index_column_names on i.indexrelid = index_column_names.indexrelid
where
    c.relname = ` + rel + `
    and n.nspname = ` + QuoteLiteral(schema)
}

func describeConstraintsQuery(schema, relation string) string {
	rel := QuoteLiteral(relation)
	return `with
    constraint_columns as (
        select con.oid, c.oid as rel_oid, unnest(con.conkey) as attnum
        from pg_catalog.pg_constraint con
        join pg_catalog.pg_class c on con.conrelid = c.oid
        where c.relname = ` + rel + `
    ),
    constraint_column_names as (
        select
            constraint_columns.oid,
            string_agg(pg_attribute.attname, ', ') as columns
        from constraint_columns
        join pg_catalog.pg_attribute
            on constraint_columns.rel_oid = pg_attribute.attrelid
            and constraint_columns.attnum = pg_attribute.attnum
        group by 1
    ),
    constraint_foreign_columns as (
        select con.oid, c.oid as rel_oid, unnest(con.confkey) as attnum
        from pg_catalog.pg_constraint con
        join pg_catalog.pg_class c on con.conrelid = c.oid
        where c.relname = ` + rel + `
    ),
    constraint_foreign_column_names as (
        select
            constraint_foreign_columns.oid,
            string_agg(pg_attribute.attname, ', ') as columns
        from constraint_foreign_columns
        join pg_catalog.pg_attribute
            on constraint_foreign_columns.rel_oid = pg_attribute.attrelid
            and constraint_foreign_columns.attnum = pg_attribute.attnum
        group by 1
    )
select
    c.relname as "Table",
    con.conname as "Constraint name",
    case con.contype
        when 'c' then 'Check'
        when 'n' then 'Not Null'
        when 'p' then 'Primary Key'
        when 'f' then 'Foreign Key'
        when 'u' then 'Unique'
        when 't' then 'Trigger'
        when 'x' then 'Exclusion'
        else con.contype::text
    end as "Constraint Type",
    constraint_column_names.columns as "Columns",
    c.relnamespace::regnamespace
        || '.' || fc.relname
        || '(' || constraint_foreign_column_names.columns || ')' as "References",
    con.conislocal as "Is Local",
    con.convalidated as "Is Validated",
    case con.confupdtype
        when 'a' then 'no action'
        when 'r' then 'restrict'
        when 'c' then 'cascade'
        when 'n' then 'set null'
        when 'd' then 'set default'
        else con.confupdtype::text
    end as "FK Update Type",
    case con.confdeltype
        when 'a' then 'no action'
        when 'r' then 'restrict'
        when 'c' then 'cascade'
        when 'n' then 'set null'
        when 'd' then 'set default'
        else con.confdeltype::text
    end as "FK Delete Type",
    case con.confmatchtype
        when 's' then 'simple'
        when 'f' then 'full'
        when 'p' then 'partial'
        else con.confmatchtype::text
    end as "FK Match Type"
from pg_catalog.pg_constraint con
join pg_catalog.pg_class c on con.conrelid = c.oid
join pg_catalog.pg_namespace n on n.oid = c.relnamespace
left join pg_catalog.pg_class fc on con.confrelid = fc.oid
left join constraint_column_names on con.oid = constraint_column_names.oid
left join constraint_foreign_column_names
    on con.oid = constraint_foreign_column_names.oid
where
    c.relname = ` + rel + `
    and n.nspname = ` + QuoteLiteral(schema)
}

func viewDefinitionQuery(schema, relation string) string {
	return `select pg_catalog.pg_get_viewdef(c.oid, true)
from pg_catalog.pg_class as c
left join pg_catalog.pg_namespace n on n.oid = c.relnamespace
where c.relname = ` + QuoteLiteral(relation) + ` and n.nspname = ` + QuoteLiteral(schema)
}
